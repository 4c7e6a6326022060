package session

import (
	"context"
	"strings"

	"netaudit/internal/domain"
)

// moreTokens are the continuation prompts emitted by paged CLI output across
// the supported dialects.
var moreTokens = []string{
	"---- More ----",
	"--More--",
	"More:",
	"<--- More --->",
}

// SendPaged runs a command and keeps feeding the pager until the output no
// longer carries a continuation prompt. The continuation is a lone space,
// which the interactive transport forwards as a raw keypress. Tokens are
// stripped from the result.
func SendPaged(ctx context.Context, sh Shell, command string) (string, error) {
	output, err := sh.Send(ctx, command)
	if err != nil {
		return "", err
	}

	if output == "" {
		return "", nil
	}

	for hasMoreToken(output) {
		for _, token := range moreTokens {
			output = strings.ReplaceAll(output, token, "")
		}

		chunk, err := sh.Send(ctx, " ")
		if err != nil {
			return output, err
		}
		if chunk == "" {
			break
		}

		output += chunk
	}

	return output, nil
}

func hasMoreToken(output string) bool {
	for _, token := range moreTokens {
		if strings.Contains(output, token) {
			return true
		}
	}

	return false
}

// DisablePaging issues the pager-off commands best-effort; devices reject the
// dialects they don't speak and that is fine.
func DisablePaging(ctx context.Context, sh Shell, commands []string) {
	for _, command := range commands {
		if _, err := sh.Send(ctx, command); err != nil {
			continue
		}
	}
}

// DisablePagingCommands returns the pager-off command list for a dialect.
// Overrides, when present, win.
func DisablePagingCommands(vendor domain.Vendor, overrides []string) []string {
	if len(overrides) > 0 {
		return overrides
	}

	if vendor.ComwareFamily() {
		return []string{"screen-length disable", "screen-length 0 temporary"}
	}

	switch vendor {
	case domain.VendorProCurve, domain.VendorArubaOS:
		return []string{"no page"}
	default:
		return []string{
			"screen-length disable",
			"screen-length 0 temporary",
			"no page",
			"terminal length 0",
		}
	}
}
