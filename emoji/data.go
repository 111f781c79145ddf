package emoji

// data is a small, commonly-used slice of the standard Slack/Unicode
// emoji shortcode table. A full deployment would generate this from an
// upstream emoji-data JSON asset instead of hand-maintaining it.
var data = map[string]string{
	"+1":                 "\U0001F44D",
	"-1":                 "\U0001F44E",
	"thumbsup":           "\U0001F44D",
	"thumbsdown":         "\U0001F44E",
	"smile":              "\U0001F604",
	"smiley":             "\U0001F603",
	"grinning":           "\U0001F600",
	"wink":               "\U0001F609",
	"laughing":           "\U0001F606",
	"joy":                "\U0001F602",
	"heart":              "\U00002764\U0000FE0F",
	"broken_heart":       "\U0001F494",
	"fire":               "\U0001F525",
	"tada":               "\U0001F389",
	"eyes":               "\U0001F440",
	"thinking_face":      "\U0001F914",
	"wave":               "\U0001F44B",
	"clap":               "\U0001F44F",
	"pray":               "\U0001F64F",
	"rocket":             "\U0001F680",
	"warning":            "\U000026A0\U0000FE0F",
	"white_check_mark":   "\U00002705",
	"x":                  "\U0000274C",
	"100":                "\U0001F4AF",
	"skull":              "\U0001F480",
	"eyes_closed":        "\U0001F62A",
	"slightly_smiling_face": "\U0001F642",
	"sob":                "\U0001F62D",
	"shrug":              "\U0001F937",
	"tm":                 "\U00002122\U0000FE0F",
	"question":           "\U00002753",
}
