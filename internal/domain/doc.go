// Package domain models National Weather Service (NWS) Area Forecast
// Discussion (AFD) term counts.
//
// # Data Source
//
// AFD products are archived by the Iowa Environmental Mesonet (IEM) AFOS
// service at https://mesonet.agron.iastate.edu/cgi-bin/afos/retrieve.py.
// A request for one Weather Forecast Office (WFO) and one calendar year
// returns a zip archive holding one plain-text file per issued product.
//
// # NWS Data Conventions
//
// Product codes:
//
//	"<class><office>"  →  e.g. "AFDOUN"
//	the three-letter product class followed by the three-letter WFO code.
//	See [ProductCode].
//
// Year windows:
//
//	[YYYY-01-01T00:00Z, (YYYY+1)-01-01T00:00Z), UTC, half-open at the top.
//	See [YearWindow].
//
// Regions:
//
//	WFOs are grouped by NWS region: WR (Western), CR (Central),
//	ER (Eastern), SR (Southern). Unknown region codes resolve to no offices.
//
// # Term Counting
//
// Each vocabulary term is matched independently, case-insensitively, with
// a word boundary on both sides of the literal term text. A shorter term
// that also appears inside a longer term is counted by both scans:
//
//	"GFS ENSEMBLE GUIDANCE"  →  GFS=1, GFS ENSEMBLE=1
//
// Boundaries sit next to the term's first and last characters, so a term
// ending in punctuation such as "CHANCE (" only matches when a word
// character follows the parenthesis, e.g. "CHANCE (20 PERCENT)".
package domain
