package scoring

import (
	"fmt"

	"go-produce-measure/pkg/models"
)

// Canned comment templates used when the model gave nothing quotable.
// Parameters: type, length, thickness, freshness.
var commentTemplates = []string{
	"A fine specimen of %s: %.1fcm long, %.1fcm across, freshness %d/10. The market stall approves.",
	"This %s measures a confident %.1fcm by %.1fcm. Freshness %d/10, posture excellent.",
	"Behold, a %s at %.1fcm with %.1fcm of girth, freshness %d/10. Science has spoken.",
	"Our inspector rates this %s at %.1fcm long and %.1fcm thick, freshness %d/10. Carry on.",
}

func (s *Scorer) cannedComment(t models.ObjectType, length, thickness float64, freshness int) string {
	name := string(t)
	if name == "" {
		name = "produce"
	}
	template := commentTemplates[s.intn(len(commentTemplates))]
	return fmt.Sprintf(template, name, length, thickness, freshness)
}
