package domain

import "sort"

// Regions maps an NWS region code to its ordered WFO list.
type Regions map[string][]string

// DefaultRegions returns the built-in region tables.
func DefaultRegions() Regions {
	return Regions{
		"WR": {"BYZ", "BOI", "LKN", "EKA", "FGZ", "GGW", "TFX", "VEF", "LOX", "MFR",
			"MSO", "PDT", "PSR", "PIH", "PQR", "REV", "STO", "SLC", "SGX", "MTR",
			"HNX", "SEW", "OTX", "TWC"},

		"CR": {"ABR", "BIS", "CYS", "LOT", "DVN", "BOU", "DMX", "DTX", "DDC", "DLH",
			"FGF", "GLD", "GJT", "GRR", "GRB", "GID", "IND", "JKL", "EAX", "ARX",
			"ILX", "LMK", "MQT", "MKX", "MPX", "LBF", "APX", "IWX", "OAX", "PAH",
			"PUB", "UNR", "RIW", "FSD", "SGF", "LSX", "TOP", "ICT"},

		"ER": {"ALY", "LWX", "BGM", "BOX", "BUF", "BTV", "CAR", "CTP", "RLX", "CHS",
			"ILN", "CLE", "CAE", "GSP", "MHX", "OKX", "PHI", "PBZ", "GYX", "RAH",
			"RNK", "AKQ", "ILM"},

		// MRX is listed twice upstream; Offices drops the repeat.
		"SR": {"ABQ", "AMA", "FFC", "EWX", "BMX", "BRO", "CRP", "EPZ", "FWD", "HGX",
			"HUN", "JAN", "JAX", "KEY", "MRX", "LCH", "LZK", "LUB", "MLB", "MEG",
			"MAF", "MFL", "MOB", "MRX", "OHX", "LIX", "OUN", "SJT", "SHV", "TAE",
			"TBW", "TSA"},
	}
}

// Offices returns the region's offices in list order with repeats removed.
// An unknown region yields an empty, non-nil slice.
func (r Regions) Offices(region string) []string {
	list := r[region]
	offices := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, o := range list {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		offices = append(offices, o)
	}
	return offices
}

// Codes returns the known region codes.
func (r Regions) Codes() []string {
	codes := make([]string, 0, len(r))
	for c := range r {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ValidRegionCode reports whether code is non-empty and made only of ASCII
// letters and digits. Region codes end up in output file names.
func ValidRegionCode(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
