package lexmodel

// SpanishStopwords is the built-in function-word list used when no stoplist
// file is configured.
var SpanishStopwords = []string{
	"a", "al", "algo", "algunas", "algunos", "ante", "antes", "como", "con", "contra",
	"cual", "cuando", "de", "del", "desde", "donde", "durante", "e", "el", "ella",
	"ellas", "ellos", "en", "entre", "era", "es", "esa", "esas", "ese", "eso",
	"esos", "esta", "estas", "este", "esto", "estos", "fue", "ha", "han", "hasta",
	"hay", "la", "las", "le", "les", "lo", "los", "más", "me", "mi",
	"muy", "nada", "ni", "no", "nos", "o", "otra", "otro", "para", "pero",
	"poco", "por", "porque", "que", "qué", "quien", "se", "sea", "ser", "si",
	"sí", "sin", "sobre", "son", "su", "sus", "también", "te", "tiene", "todo",
	"todos", "tu", "tus", "un", "una", "uno", "unos", "y", "ya", "yo",
}
