package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

var (
	bold         = color.New(color.Bold)
	gray         = color.New(color.Faint)
	green        = color.New(color.FgGreen)
	yellow       = color.New(color.FgYellow)
	red          = color.New(color.FgRed)
	cyan         = color.New(color.FgCyan)
	addressStyle = color.New(color.FgWhite)
	sectionStyle = color.New(color.Bold, color.FgHiWhite)
	chainHeader  = color.New(color.BgCyan, color.FgBlack, color.Bold)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return yellow.Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon. Only the last
// element of a wrapped error chain is shown.
func FormatError(message string) string {
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]

	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return red.Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return green.Sprintf("✅ %s", message)
}

// Title capitalizes every word of s
func Title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}

// StatusString colours a record status
func StatusString(status models.TransactionStatus) string {
	switch status {
	case models.TransactionStatusFinal:
		return green.Sprint(status)
	case models.TransactionStatusConfirmed:
		return cyan.Sprint(status)
	case models.TransactionStatusSent:
		return yellow.Sprint(status)
	case models.TransactionStatusFailed:
		return red.Sprint(status)
	}
	return string(status)
}

// ShortHash truncates a hash or address for tables
func ShortHash(s string) string {
	return domain.TruncateAddress(s)
}

// FormatAmount renders base units with the given number of decimals
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}
	neg := amount.Sign() < 0
	digits := new(big.Int).Abs(amount).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole, frac := digits[:len(digits)-decimals], strings.TrimRight(digits[len(digits)-decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// newTable returns a borderless table writer in the style of the list views
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:      " ",
		PaddingRight:     "  ",
		MiddleHorizontal: "─",
	}
	return t
}

// RenderJSON writes v as indented JSON
func RenderJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
