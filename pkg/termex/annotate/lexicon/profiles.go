package lexicon

import (
	"strings"

	"github.com/cognicore/termex/pkg/termex/annotate"
)

// suffixRule tags unknown lowercase words by ending.
type suffixRule struct {
	suffix string
	pos    string
	minLen int
}

// profile holds the built-in tables for one language.
type profile struct {
	stopwords     []string
	closed        map[string]string // closed-class word -> POS
	suffixes      []suffixRule
	abbreviations []string
	elisions      []string // French l', d', qu' ...
	orgSuffixes   []string
	titles        []string
	personLabel   string
	orgLabel      string
	capitalized   bool // capitalization marks proper nouns
	segmentHan    bool
	postnominal   bool // adjectives may follow the noun in a chunk
	singular      func(string) string
}

func profileFor(lang annotate.Language) (*profile, bool) {
	switch lang {
	case annotate.English:
		return englishProfile(), true
	case annotate.French:
		return frenchProfile(), true
	case annotate.Chinese:
		return chineseProfile(), true
	}
	return nil, false
}

func closedClass(groups map[string][]string) map[string]string {
	out := make(map[string]string)
	for pos, words := range groups {
		for _, w := range words {
			out[w] = pos
		}
	}
	return out
}

func englishProfile() *profile {
	return &profile{
		stopwords: strings.Fields(`a about above after again against all am an and any are as at
			be because been before being below between both but by can could did do does doing down
			during each few for from further had has have having he her here hers herself him himself
			his how i if in into is it its itself just me more most my myself no nor not now of off on
			once only or other our ours ourselves out over own same she should so some such than that
			the their theirs them themselves then there these they this those through to too under
			until up very was we were what when where which while who whom why will with would you
			your yours yourself yourselves also may might must shall us`),
		closed: closedClass(map[string][]string{
			annotate.POSDet:   {"a", "an", "the", "this", "that", "these", "those", "some", "any", "each", "every", "no", "another", "all", "both", "either", "neither"},
			annotate.POSPron:  {"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them", "my", "your", "his", "its", "our", "their", "who", "whom", "which", "what", "myself", "itself", "themselves"},
			annotate.POSAdp:   {"in", "on", "at", "of", "for", "with", "by", "from", "to", "into", "over", "under", "about", "after", "before", "between", "through", "during", "without", "within", "against", "among", "across", "per", "via"},
			annotate.POSCconj: {"and", "or", "but", "nor", "yet"},
			annotate.POSSconj: {"if", "because", "while", "although", "though", "whether", "since", "unless", "until", "than"},
			annotate.POSAux:   {"is", "are", "was", "were", "be", "been", "being", "am", "has", "have", "had", "do", "does", "did", "will", "would", "shall", "should", "can", "could", "may", "might", "must"},
			annotate.POSPart:  {"not", "'s", "n't"},
			annotate.POSAdv:   {"very", "also", "too", "just", "only", "now", "then", "here", "there", "never", "always", "often", "so", "again", "still", "already", "soon"},
			annotate.POSAdj:   {"new", "old", "good", "great", "big", "small", "large", "high", "low", "long", "short", "first", "last", "major", "free", "best", "better", "latest", "early", "late", "young", "next", "own", "other", "same", "public", "local", "global", "smart", "open"},
			annotate.POSVerb:  {"said", "says", "say", "make", "made", "get", "got", "go", "went", "take", "took", "see", "saw", "know", "knew", "think", "use", "find", "give", "tell", "told", "become", "became"},
		}),
		suffixes: []suffixRule{
			{"ly", annotate.POSAdv, 5},
			{"ing", annotate.POSVerb, 6},
			{"ed", annotate.POSVerb, 5},
			{"ize", annotate.POSVerb, 6},
			{"ise", annotate.POSVerb, 7},
			{"ify", annotate.POSVerb, 6},
			{"ous", annotate.POSAdj, 5},
			{"ful", annotate.POSAdj, 5},
			{"ive", annotate.POSAdj, 5},
			{"able", annotate.POSAdj, 6},
			{"ible", annotate.POSAdj, 6},
			{"less", annotate.POSAdj, 6},
			{"ish", annotate.POSAdj, 5},
			{"ical", annotate.POSAdj, 6},
			{"ic", annotate.POSAdj, 5},
			{"al", annotate.POSAdj, 5},
		},
		abbreviations: []string{"inc.", "corp.", "ltd.", "co.", "mr.", "mrs.", "ms.", "dr.", "prof.", "st.", "jr.", "sr.", "vs.", "etc.", "no.", "dept."},
		orgSuffixes:   []string{"inc.", "inc", "corp.", "corp", "ltd.", "ltd", "llc", "plc", "co.", "gmbh", "ag", "group"},
		titles:        []string{"mr.", "mrs.", "ms.", "dr.", "prof.", "sir"},
		personLabel:   "PERSON",
		orgLabel:      "ORG",
		capitalized:   true,
		singular:      englishSingular,
	}
}

func frenchProfile() *profile {
	return &profile{
		stopwords: strings.Fields(`au aux avec ce ces cet cette dans de des du elle elles en et eux il
			ils je la le les leur leurs lui ma mais me même mes moi mon ne nos notre nous on ou par pas
			pour qu que qui sa se ses son sur ta te tes toi ton tu un une vos votre vous c' d' j' l' m'
			n' s' t' qu' à été être est sont a ont avait était sera plus comme aussi très tout tous`),
		closed: closedClass(map[string][]string{
			annotate.POSDet:   {"le", "la", "les", "l'", "un", "une", "des", "du", "ce", "cet", "cette", "ces", "mon", "ma", "mes", "ton", "ta", "tes", "son", "sa", "ses", "notre", "nos", "votre", "vos", "leur", "leurs", "chaque", "quelques"},
			annotate.POSPron:  {"je", "j'", "tu", "il", "elle", "on", "nous", "vous", "ils", "elles", "me", "m'", "te", "t'", "se", "s'", "lui", "eux", "moi", "toi", "qui", "que", "qu'", "quoi", "dont"},
			annotate.POSAdp:   {"de", "d'", "à", "au", "aux", "en", "dans", "pour", "par", "sur", "avec", "sans", "sous", "chez", "entre", "vers", "contre"},
			annotate.POSCconj: {"et", "ou", "mais", "donc", "or", "ni", "car"},
			annotate.POSSconj: {"si", "quand", "comme", "lorsque", "puisque"},
			annotate.POSAux:   {"est", "sont", "été", "être", "a", "ont", "avait", "était", "sera", "ai", "as", "avons", "avez", "suis", "es", "sommes", "êtes"},
			annotate.POSPart:  {"ne", "n'", "pas"},
			annotate.POSAdv:   {"très", "plus", "aussi", "bien", "déjà", "encore", "toujours", "jamais", "ici", "là"},
			annotate.POSAdj:   {"nouveau", "nouvelle", "nouveaux", "nouvelles", "grand", "grande", "petit", "petite", "premier", "première", "dernier", "dernière", "bon", "bonne"},
		}),
		suffixes: []suffixRule{
			{"ment", annotate.POSAdv, 7},
			{"ique", annotate.POSAdj, 6},
			{"able", annotate.POSAdj, 6},
			{"ible", annotate.POSAdj, 6},
			{"euse", annotate.POSAdj, 6},
			{"eux", annotate.POSAdj, 5},
			{"ive", annotate.POSAdj, 5},
			{"elle", annotate.POSAdj, 6},
			{"aire", annotate.POSAdj, 6},
		},
		abbreviations: []string{"m.", "mme.", "mlle.", "dr.", "me.", "st.", "cie."},
		elisions:      []string{"l'", "d'", "j'", "qu'", "n'", "s'", "c'", "m'", "t'"},
		orgSuffixes:   []string{"sa", "sas", "sarl", "cie.", "groupe"},
		titles:        []string{"m.", "mme", "mme.", "mlle", "mlle.", "dr.", "me."},
		personLabel:   "PER",
		orgLabel:      "ORG",
		capitalized:   true,
		postnominal:   true,
		singular:      frenchSingular,
	}
}

func chineseProfile() *profile {
	return &profile{
		stopwords: []string{"的", "了", "和", "是", "在", "我", "有", "他", "她", "它", "这", "那", "也", "就", "都", "而", "及", "与", "着", "或", "一个", "我们", "你", "们"},
		closed: closedClass(map[string][]string{
			annotate.POSPart:  {"的", "了", "着", "过", "吗", "呢"},
			annotate.POSCconj: {"和", "与", "及", "或"},
			annotate.POSAdp:   {"在", "从", "对", "把", "被"},
			annotate.POSAux:   {"是"},
			annotate.POSPron:  {"我", "你", "他", "她", "它", "我们", "你们", "他们"},
			annotate.POSDet:   {"这", "那", "每"},
			annotate.POSAdv:   {"也", "就", "都", "很", "不"},
		}),
		orgSuffixes: []string{"公司", "集团", "银行"},
		personLabel: "PERSON",
		orgLabel:    "ORG",
		segmentHan:  true,
		singular:    func(s string) string { return s },
	}
}

func englishSingular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && (strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "shes") || strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "xes")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") &&
		!strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		return w[:len(w)-1]
	}
	return w
}

func frenchSingular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "aux"):
		return w[:len(w)-3] + "al"
	case len(w) > 3 && (strings.HasSuffix(w, "s") || strings.HasSuffix(w, "x")) && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}
