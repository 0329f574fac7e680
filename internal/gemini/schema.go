package gemini

import "google.golang.org/genai"

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

var matchListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: object(
		[]string{"teamA", "teamB", "status", "venue", "matchType", "statusType", "newsHeadline", "matchContext", "publishedAt"},
		map[string]*genai.Schema{
			"teamA":        str(),
			"teamB":        str(),
			"status":       str(),
			"venue":        str(),
			"matchType":    str(),
			"statusType":   str(),
			"winner":       str(),
			"scoreA":       str(),
			"scoreB":       str(),
			"newsHeadline": str(),
			"matchContext": str(),
			"publishedAt":  {Type: genai.TypeNumber},
		},
	),
}

var postContentSchema = object(
	[]string{"headline", "description", "hashtags"},
	map[string]*genai.Schema{
		"headline":    str(),
		"description": str(),
		"hashtags":    str(),
	},
)

var playerSchema = object(nil, map[string]*genai.Schema{
	"name":    str(),
	"score":   str(),
	"details": str(),
})

var liveUpdateSchema = object(
	[]string{"score", "summary", "commentary", "recentBalls", "keyMoment", "topBatters", "topBowlers"},
	map[string]*genai.Schema{
		"score":       str(),
		"summary":     str(),
		"commentary":  str(),
		"recentBalls": {Type: genai.TypeArray, Items: str()},
		"keyMoment":   str(),
		"topBatters":  {Type: genai.TypeArray, Items: playerSchema},
		"topBowlers":  {Type: genai.TypeArray, Items: playerSchema},
	},
)
