package tagger

// keywordRule maps one literal phrase to a normalized keyword tag. The
// table is ordered: context detection scans groups in this order and the
// first matching group wins, so the ordering is behavior, not style.
type keywordRule struct {
	Phrase string
	Tag    string
}

var keywordTable = []keywordRule{
	// Injury
	{"injur", "injury"},
	{"hamstring", "injury"},
	{"calf", "injury"},
	{"shoulder", "injury"},
	{"knee", "injury"},
	{"ankle", "injury"},
	{"concuss", "injury"},
	{"ruled out", "injury"},
	{"sidelined", "injury"},
	{"miss", "injury"},
	{"setback", "injury"},
	// Return
	{"return", "return"},
	{"back from", "return"},
	{"recovered", "return"},
	{"cleared to play", "return"},
	{"set to return", "return"},
	{"available", "return"},
	// Trade
	{"trade", "trade"},
	{"request", "trade"},
	{"move to", "trade"},
	{"join", "trade"},
	{"sign", "trade"},
	{"departure", "trade"},
	{"free agent", "trade"},
	// Selection
	{"select", "selection"},
	{"named", "selection"},
	{"omit", "selection"},
	{"drop", "selection"},
	{"debut", "selection"},
	{"axed", "selection"},
	{"in for", "selection"},
	{"out for", "selection"},
	{"recalled", "selection"},
	// Contract
	{"contract", "contract"},
	{"re-sign", "contract"},
	{"deal", "contract"},
	{"extension", "contract"},
	{"years", "contract"},
	// Form
	{"form", "form"},
	{"scores", "form"},
	{"points", "form"},
	{"averaging", "form"},
	{"performance", "form"},
	{"disposal", "form"},
	{"best on ground", "form"},
	{"bog", "form"},
}

// keywordDimensions maps normalized keyword tags (many-to-one) to the
// dimension code used for downstream aggregation filtering.
var keywordDimensions = map[string]string{
	"injury":    "injury_status",
	"return":    "fitness_health",
	"selection": "selection_security",
	"trade":     "selection_security", // trade talk affects selection security
	"contract":  "role_change",
	"form":      "form_trajectory",
}

// ContextPriority is the order keyword groups are tested when classifying
// the text around an entity mention. First matching group wins.
var ContextPriority = []string{"injury", "return", "trade", "selection", "form"}

// PhrasesFor returns the literal phrases of one keyword group, in table
// order.
func PhrasesFor(tag string) []string {
	var phrases []string
	for _, rule := range keywordTable {
		if rule.Tag == tag {
			phrases = append(phrases, rule.Phrase)
		}
	}
	return phrases
}
