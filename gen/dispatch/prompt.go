package dispatch

import (
	"fmt"
	"strings"

	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/splitter"
)

// Input keys that are modifiers, not tool fields. They are excluded from the
// prompt listing even when a caller accidentally places them among inputs.
var reservedInputKeys = map[string]bool{
	"outputCount": true,
	"tone":        true,
	"language":    true,
}

// BuildPrompt renders the user prompt for a generation request: the tool
// name, a key/value listing of the inputs in insertion order, the effective
// tone and language, and — only when more than one variation is requested —
// the instruction to separate variations with splitter.VariationMarker. The
// instruction is the producer-side half of the splitter's first rule.
func BuildPrompt(req *gen.GenerationRequest) string {
	var lines []string
	if req.Inputs != nil {
		for pair := req.Inputs.Oldest(); pair != nil; pair = pair.Next() {
			if reservedInputKeys[pair.Key] {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", pair.Key, pair.Value))
		}
	}

	separatorInstruction := ""
	if count := req.EffectiveOutputCount(); count > 1 {
		separatorInstruction = fmt.Sprintf(
			"\n\nIMPORTANT: Generate exactly %d distinct variations. Separate each variation with the exact line: %s",
			count, splitter.VariationMarker,
		)
	}

	return fmt.Sprintf("%s\n\n%s\n\nTone: %s\nLanguage: %s%s",
		req.ToolName,
		strings.Join(lines, "\n"),
		req.EffectiveTone(),
		req.EffectiveLanguage(),
		separatorInstruction,
	)
}
