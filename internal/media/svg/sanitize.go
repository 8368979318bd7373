package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotSVG = errors.New("not an svg document")

// allowedElements are the static SVG elements kept. Anything else, together
// with its whole subtree, is dropped: script, foreignObject, the animation
// elements that can rewrite an href, embedded HTML.
var allowedElements = map[string]bool{
	"svg": true, "g": true, "defs": true, "symbol": true, "use": true, "title": true, "desc": true,
	"metadata": true, "switch": true, "view": true, "style": true, "a": true,
	"path": true, "rect": true, "circle": true, "ellipse": true, "line": true, "polyline": true,
	"polygon": true, "text": true, "tspan": true, "textpath": true, "image": true, "marker": true,
	"clippath": true, "mask": true, "pattern": true, "lineargradient": true, "radialgradient": true,
	"stop": true, "filter": true, "feblend": true, "fecolormatrix": true, "fecomponenttransfer": true,
	"fecomposite": true, "feconvolvematrix": true, "fediffuselighting": true, "fedisplacementmap": true,
	"fedistantlight": true, "feflood": true, "fefunca": true, "fefuncb": true, "fefuncg": true,
	"fefuncr": true, "fegaussianblur": true, "feimage": true, "femerge": true, "femergenode": true,
	"femorphology": true, "feoffset": true, "fepointlight": true, "fespecularlighting": true,
	"fespotlight": true, "fetile": true, "feturbulence": true, "fedropshadow": true,
}

var safeDataPrefixes = []string{"data:image/png", "data:image/jpeg", "data:image/gif", "data:image/webp"}

// Contains reports whether data carries an <svg element anywhere, which is
// enough for a browser to render it as SVG when served with that extension.
func Contains(data []byte) bool {
	return bytes.Contains(bytes.ToLower(data), []byte("<svg"))
}

// Sanitize re-serializes an SVG document keeping only allow-listed
// elements. Event handler attributes and links to anything other than a
// fragment, http(s), a relative path or an inline raster are removed, as
// are comments, doctypes and processing instructions other than the XML
// declaration.
func Sanitize(input []byte) ([]byte, error) {
	if !Contains(input) {
		return nil, ErrNotSVG
	}

	dec := xml.NewDecoder(bytes.NewReader(input))
	dec.Strict = false

	var (
		out     bytes.Buffer
		skip    int
		sawRoot bool
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skip > 0 || !allowedElement(t.Name) {
				skip++
				continue
			}
			if !sawRoot {
				if strings.ToLower(t.Name.Local) != "svg" {
					return nil, ErrNotSVG
				}
				sawRoot = true
			}
			writeStart(&out, t)
		case xml.EndElement:
			if skip > 0 {
				skip--
				continue
			}
			out.WriteString("</" + qualified(t.Name) + ">")
		case xml.CharData:
			if skip == 0 && sawRoot {
				_ = xml.EscapeText(&out, t)
			}
		case xml.ProcInst:
			if t.Target == "xml" && out.Len() == 0 {
				out.WriteString("<?xml " + string(t.Inst) + "?>")
			}
		}
	}

	if !sawRoot {
		return nil, ErrNotSVG
	}
	return out.Bytes(), nil
}

func allowedElement(name xml.Name) bool {
	if name.Space != "" && name.Space != "svg" {
		return false
	}
	return allowedElements[strings.ToLower(name.Local)]
}

func writeStart(out *bytes.Buffer, t xml.StartElement) {
	out.WriteString("<" + qualified(t.Name))
	for _, attr := range t.Attr {
		if !allowedAttr(attr) {
			continue
		}
		out.WriteString(" " + qualified(attr.Name) + `="`)
		_ = xml.EscapeText(out, []byte(attr.Value))
		out.WriteString(`"`)
	}
	out.WriteString(">")
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func allowedAttr(attr xml.Attr) bool {
	local := strings.ToLower(attr.Name.Local)
	if strings.HasPrefix(local, "on") {
		return false
	}
	if local == "href" || local == "src" || local == "action" || local == "formaction" {
		return safeLink(attr.Value)
	}
	return true
}

// safeLink accepts fragments, relative paths, http(s) and inline rasters.
func safeLink(value string) bool {
	v := strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, value))

	colon := strings.IndexByte(v, ':')
	if colon < 0 || strings.ContainsAny(v[:colon], "/?#") {
		return true
	}
	switch v[:colon] {
	case "http", "https":
		return true
	case "data":
		for _, prefix := range safeDataPrefixes {
			if strings.HasPrefix(v, prefix) {
				return true
			}
		}
	}
	return false
}
