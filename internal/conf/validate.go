package conf

import (
	"fmt"
	"strings"

	"github.com/nutriscan/arnutri-go/internal/errors"
)

// ValidateSettings checks the loaded settings for inconsistencies that
// would break the pipeline at runtime.
func ValidateSettings(settings *Settings) error {
	var problems []string

	switch settings.Display.Mode {
	case "ar", "screen":
	default:
		problems = append(problems, fmt.Sprintf("display.mode must be \"ar\" or \"screen\", got %q", settings.Display.Mode))
	}

	switch settings.Scanner.Camera.Facing {
	case "back", "front":
	default:
		problems = append(problems, fmt.Sprintf("scanner.camera.facing must be \"back\" or \"front\", got %q", settings.Scanner.Camera.Facing))
	}

	if settings.Display.Panel.Width <= 0 || settings.Display.Panel.Height <= 0 {
		problems = append(problems, "display.panel dimensions must be positive")
	}

	if settings.Display.Margin < 0 {
		problems = append(problems, "display.margin must not be negative")
	}

	if settings.Display.VerticalRatio <= 0 || settings.Display.VerticalRatio >= 1 {
		problems = append(problems, "display.verticalratio must be between 0 and 1")
	}

	if settings.Lookup.BaseURL == "" {
		problems = append(problems, "lookup.baseurl must not be empty")
	}

	if settings.Orientation.NoiseThreshold < 0 {
		problems = append(problems, "orientation.noisethreshold must not be negative")
	}

	if settings.Compare.Scale <= 0 || settings.Compare.Scale > 1 {
		problems = append(problems, "compare.scale must be in (0, 1]")
	}

	if settings.Scanner.RearmDelay < 0 || settings.Scanner.RearmOnError < 0 {
		problems = append(problems, "scanner re-arm delays must not be negative")
	}

	if len(problems) > 0 {
		return errors.Newf("invalid configuration: %s", strings.Join(problems, "; ")).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}

	return nil
}
