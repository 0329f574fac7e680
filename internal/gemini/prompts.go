package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"crickmic-engine/internal/domain"
)

func aggregatorPrompt(signals []json.RawMessage) string {
	raw, err := json.Marshal(signals)
	if err != nil || len(signals) == 0 {
		raw = []byte("[]")
	}
	return fmt.Sprintf(`CRITICAL SPORTS NEWS AGGREGATOR:
Search for the latest breaking cricket news from the LAST 24 HOURS.
Specifically look for Match Results, Player Milestones, and Live Score updates.

CROSS-REFERENCE with these signals: %s

Return for EACH match:
1. Accurate Score/Result.
2. Viral news headline.
3. Journalistic context (milestones, stats).
4. Published timestamp (Unix ms).
5. Match status (LIVE, RESULT, or UPCOMING).

Order by latest first. Return a JSON array.`, raw)
}

func contentPrompt(brand string, m domain.Match, postCtx string) string {
	if strings.TrimSpace(postCtx) == "" {
		postCtx = m.NewsHeadline
	}
	return fmt.Sprintf(`Write an EXPERT, viral Facebook post for '%s'.
Context: %s.
Match: %s vs %s.

INSTRUCTIONS:
1. If context refers to a specific player, focus the post entirely on their "Hero" moment and individual stats.
2. If context is a "Summary", write a deep tactical analysis of the match's flow.
3. If context is "Update", make it a punchy score update.
4. Start with a high-energy hook.
5. Include a clean performance breakdown (stats) formatted for readability.
6. End with a high-engagement question.
7. 15 Trending hashtags.

Return JSON.`, brand, postCtx, m.TeamA, m.TeamB)
}

func liveUpdatePrompt(m domain.Match) string {
	return fmt.Sprintf(`LIVE MATCH TRACKER & DETAILED SCORECARD:
Find the COMPLETE current situation for: %s vs %s.
Search for:
- Current score, overs, and run rate.
- Full match summary narrative.
- Top 3 Batters (Name, runs, balls, strike rate, boundaries).
- Top 3 Bowlers (Name, overs, wickets, runs, economy).
- Last 6 balls detailed commentary.
- Most critical milestone or moment in the last 5 overs.

Return JSON.`, m.TeamA, m.TeamB)
}

var playerFocusRe = regexp.MustCompile(`PLAYER FOCUS: Heroic performance by (.+?)\. Team: (.+?)\. Stats: (.+?) - (.+?)\.(?:\s|$)`)

// imagePrompt picks the visual cue from the post context: player focus,
// summary, batting, bowling, or a generic stadium shot.
func imagePrompt(brand string, m domain.Match, postCtx string) string {
	const baseStyle = "Professional sport broadcast poster, photorealistic 8K, cinematic neon lighting, dynamic 3D perspective, square 1:1 composition."
	const effects = "EFFECTS: Kinetic motion blur, glowing geometric shards, and particle overlays."
	branding := fmt.Sprintf("BRANDING: Place '%s' logo in top-left.", brand)
	teams := fmt.Sprintf("VISUAL: Use the primary colors and textures of %s and %s.", m.TeamA, m.TeamB)

	cue := "STADIUM: Epic atmospheric cricket stadium at night. "
	overlay := fmt.Sprintf("Text overlay: '%s vs %s'", m.TeamA, m.TeamB)
	lower := strings.ToLower(postCtx)

	switch {
	case strings.Contains(lower, "player focus") || strings.Contains(lower, "heroic performance"):
		if pm := playerFocusRe.FindStringSubmatch(postCtx); pm != nil {
			name, team, score, details := pm[1], pm[2], pm[3], pm[4]
			upper := strings.ToUpper(name)
			cue += fmt.Sprintf("HERO SHOT: High-action close up of %s in a dynamic pose, explicitly wearing the professional team jersey and colors of %s. ", name, team)
			cue += fmt.Sprintf("OVERLAY: Create a translucent, futuristic HUD/Stat-card in the lower-third displaying: Name: '%s', Performance: '%s', Stats: '%s'. ", upper, score, details)
			overlay = fmt.Sprintf("Big bold graphic text: '%s' and '%s'.", upper, score)
		} else {
			cue += "Action shot of a heroic player with sparks and light trails. "
		}
	case strings.Contains(lower, "summary"):
		cue += "Wide cinematic view of the cricket field with a neon summary board showing key moments. "
	case strings.Contains(lower, "batter") || strings.Contains(lower, "century") || strings.Contains(lower, "runs"):
		cue += "Action shot of a heroic batter hitting a massive six with sparks flying. "
	case strings.Contains(lower, "bowler") || strings.Contains(lower, "wicket"):
		cue += "Action shot of a fast bowler celebrating a clean bowled wicket with splintering stumps. "
	default:
		cue += "Wide angle cinematic view of a glowing cricket pitch with 3D scoreboard numbers in the air. "
	}

	return strings.Join([]string{baseStyle, branding, teams, effects, strings.TrimSpace(cue), overlay}, " ")
}
