package gate

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/block.html
var templatesFS embed.FS

var blockPage = template.Must(
	template.New("block.html").
		Funcs(template.FuncMap{"formatPhone": FormatPhone}).
		ParseFS(templatesFS, "templates/block.html"),
)

// Render writes the full page shown in place of a blocked store.
func Render(w io.Writer, b *Block) error {
	if b == nil {
		return fmt.Errorf("render block page: nil block")
	}
	if err := blockPage.Execute(w, b); err != nil {
		return fmt.Errorf("render block page: %w", err)
	}
	return nil
}

// FormatPhone spaces an Egyptian mobile number as "01X XXXX XXXX" and
// returns anything else unchanged.
func FormatPhone(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "01") && len(number) == 11 {
		return number[:3] + " " + number[3:7] + " " + number[7:]
	}
	return number
}
