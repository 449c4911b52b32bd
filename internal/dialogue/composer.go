package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Yashasrn33/RPGAI/internal/model"
)

// SystemInstruction is sent with every generation call. It pins the
// backend to in-lore, schema-conforming output; the validator still
// re-checks everything locally.
const SystemInstruction = `You are the Dialogue Brain for an in-world NPC in a medieval-fantasy RPG.

HARD RULES:
- Stay strictly in-lore. Never mention models, prompts, APIs, or the player's real world.
- Be concise: 1–3 sentences. Max 320 chars of spoken text.
- Use CURRENT CONTEXT only if relevant; never invent events.
- Safety: avoid slurs, sexual content, self-harm advice.
- OUTPUT ONLY valid JSON that matches the provided JSON Schema. No extra text.

PERSONALITY ADAPTATION:
- Match the persona's values, quirks, and backstory.
- Let emotion guide word choice (angry → curt; happy → warm).
- Use retrieved memories to maintain continuity.

ACTION LOGIC:
- reputation < 0: be guarded or hostile.
- reputation > 10: be helpful and warm.
- Wrongdoing → 'call_guard' or 'step_back'.
- Kindness → 'open_shop' or 'give_item'.

MEMORY:
- Write at most 1 memory_writes entry per turn.
- Only record notable interactions (salience ≥ 1).
`

const turnTemplate = `[PERSONA]
Name: %s
Role: %s
Values: %s
Quirks: %s
Backstory hooks: %s

[CONTEXT]
scene=%s  time_of_day=%s  weather=%s
last_player_action=%s
player_reputation=%d (-10..+20)
npc_health=%d  npc_alertness=%s

[RETRIEVED_MEMORY]
%s

[PLAYER_TEXT]
"%s"

[STYLE & ACTION HINTS]
- Choose a fitting emotion that matches the subtext.
- If reputation < 0: guarded/hostile tone; if > 10: warm/helpful tone.
- Map severe wrongdoing to 'call_guard' or 'step_back'; kindness to 'open_shop' or 'give_item'.
- Write at most 1 memory_writes entry if something notable happened.
- voice_hint: choose calm, context-appropriate voice unless situation suggests otherwise.
`

// BuildPrompt renders the user content for one turn: persona sheet, scene
// context, ranked memories, the player's words, and steering hints. The
// section layout is part of the generation contract; changing it degrades
// response quality silently, so tests pin it.
func BuildPrompt(req *model.DialogueTurnRequest, memories []*model.MemoryRecord) string {
	persona := req.Persona
	gctx := req.Context

	memorySection := "- (No prior memories)"
	if len(memories) > 0 {
		lines := make([]string, len(memories))
		for i, mem := range memories {
			lines[i] = fmt.Sprintf("- (salience %d) %s", mem.Salience, mem.Text)
		}
		memorySection = strings.Join(lines, "\n")
	}

	lastAction := gctx.LastPlayerAction
	if lastAction == "" {
		lastAction = "none"
	}

	return fmt.Sprintf(turnTemplate,
		persona.Name,
		persona.Role,
		strings.Join(persona.Values, ", "),
		strings.Join(persona.Quirks, ", "),
		strings.Join(persona.Backstory, "; "),
		gctx.Scene,
		gctx.TimeOfDay,
		gctx.Weather,
		lastAction,
		gctx.Reputation(),
		gctx.Health(),
		strconv.FormatFloat(gctx.Alertness(), 'g', -1, 64),
		memorySection,
		req.Text(),
	)
}
