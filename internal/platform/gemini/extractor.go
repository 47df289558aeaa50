package gemini

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/tidwall/gjson"
)

// defaultImageMIME is assumed for base64 payloads that carry no type information.
const defaultImageMIME = "image/png"

var (
	dataURLPattern   = regexp.MustCompile(`data:(image/[a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]+)`)
	rawBase64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/=]{100,}$`)
)

// matcher inspects a parsed document for one known response shape.
type matcher func(doc gjson.Result) (ExtractedPayload, bool)

var textMatchers = []matcher{
	joinedTextAt("candidates.0.content.parts"),
	textAt("candidates.0.content.content.0.text"),
	textAt("candidates.0.content.0.text"),
	textAt("candidates.0.content"),
	joinedTextAt("candidates.0.content.content.0.parts"),
	textAt("output.0.content.0.text"),
	textAt("output.0.message.content"),
	textAt("output.0.message.content.0.text"),
	textAt("text"),
	textAt("response"),
}

var imageMatchers = []matcher{
	inlinePartImage,
	textPartImage,
	base64At("image.b64_json"),
	base64At("output.0.b64_json"),
	base64At("output.0.image.b64"),
	base64At("b64"),
	remoteURLAt("output.0.url"),
	remoteURLAt("image.url"),
	remoteURLAt("url"),
}

// ExtractText returns the first non-blank text found in a generative-AI response,
// with whitespace runs collapsed. It returns generation.ErrEmptyOrMissingText when
// no known field holds text.
func ExtractText(raw []byte) (string, error) {
	doc, err := parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrEmptyOrMissingText, err)
	}
	if p, ok := firstMatch(doc, textMatchers); ok {
		return p.Text, nil
	}
	return "", generation.ErrEmptyOrMissingText
}

// ExtractImage returns the first usable image payload in a generative-AI response:
// decoded bytes (PayloadImageBytes) or a link to fetch (PayloadRemoteURL). It returns
// generation.ErrNoImageData when nothing usable is present.
func ExtractImage(raw []byte) (ExtractedPayload, error) {
	doc, err := parse(raw)
	if err != nil {
		return ExtractedPayload{}, fmt.Errorf("%w: %v", generation.ErrNoImageData, err)
	}
	if p, ok := firstMatch(doc, imageMatchers); ok {
		return p, nil
	}
	return ExtractedPayload{}, generation.ErrNoImageData
}

func parse(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("response is not valid JSON")
	}
	return gjson.ParseBytes(raw), nil
}

func firstMatch(doc gjson.Result, matchers []matcher) (ExtractedPayload, bool) {
	for _, m := range matchers {
		if p, ok := m(doc); ok && p.Found() {
			return p, true
		}
	}
	return ExtractedPayload{}, false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textPayload(s string) (ExtractedPayload, bool) {
	s = collapseWhitespace(s)
	if s == "" {
		return ExtractedPayload{}, false
	}
	return ExtractedPayload{Kind: PayloadText, Text: s}, true
}

// stringValue returns r as a string only when it is a JSON string.
func stringValue(r gjson.Result) (string, bool) {
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func textAt(path string) matcher {
	return func(doc gjson.Result) (ExtractedPayload, bool) {
		s, ok := stringValue(doc.Get(path))
		if !ok {
			return ExtractedPayload{}, false
		}
		return textPayload(s)
	}
}

// joinedTextAt joins the text fields of an array of parts with single spaces.
func joinedTextAt(path string) matcher {
	return func(doc gjson.Result) (ExtractedPayload, bool) {
		parts := doc.Get(path)
		if !parts.IsArray() {
			return ExtractedPayload{}, false
		}
		var texts []string
		parts.ForEach(func(_, part gjson.Result) bool {
			if s, ok := stringValue(part.Get("text")); ok {
				texts = append(texts, s)
			}
			return true
		})
		return textPayload(strings.Join(texts, " "))
	}
}

func decodeBase64(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		return b, true
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		return b, true
	}
	return nil, false
}

func imagePayload(data, mimeType string) (ExtractedPayload, bool) {
	b, ok := decodeBase64(data)
	if !ok {
		return ExtractedPayload{}, false
	}
	return ExtractedPayload{Kind: PayloadImageBytes, Data: b, MIMEType: strings.TrimSpace(mimeType)}, true
}

// inlinePartImage accepts the camelCase and snake_case inline data shapes, plus the
// legacy shape where inlineData is the base64 string itself next to a mimeType field.
func inlinePartImage(doc gjson.Result) (ExtractedPayload, bool) {
	var found ExtractedPayload
	var ok bool
	doc.Get("candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		inline := part.Get("inlineData")
		switch {
		case inline.IsObject():
			found, ok = imagePayload(inline.Get("data").String(), inline.Get("mimeType").String())
		case inline.Type == gjson.String && part.Get("mimeType").Type == gjson.String:
			found, ok = imagePayload(inline.String(), part.Get("mimeType").String())
		}
		if ok {
			return false
		}
		if snake := part.Get("inline_data"); snake.IsObject() {
			found, ok = imagePayload(snake.Get("data").String(), snake.Get("mime_type").String())
		}
		return !ok
	})
	return found, ok
}

// textPartImage looks for a data URL inside text parts, or a text part that is
// nothing but a long base64 run.
func textPartImage(doc gjson.Result) (ExtractedPayload, bool) {
	var found ExtractedPayload
	var ok bool
	doc.Get("candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		text, isText := stringValue(part.Get("text"))
		if !isText {
			return true
		}
		if m := dataURLPattern.FindStringSubmatch(text); m != nil {
			found, ok = imagePayload(m[2], m[1])
			if ok {
				return false
			}
		}
		if trimmed := strings.TrimSpace(text); rawBase64Pattern.MatchString(trimmed) {
			found, ok = imagePayload(trimmed, defaultImageMIME)
		}
		return !ok
	})
	return found, ok
}

func base64At(path string) matcher {
	return func(doc gjson.Result) (ExtractedPayload, bool) {
		s, ok := stringValue(doc.Get(path))
		if !ok {
			return ExtractedPayload{}, false
		}
		return imagePayload(s, defaultImageMIME)
	}
}

func remoteURLAt(path string) matcher {
	return func(doc gjson.Result) (ExtractedPayload, bool) {
		s, ok := stringValue(doc.Get(path))
		if !ok {
			return ExtractedPayload{}, false
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "http") {
			return ExtractedPayload{}, false
		}
		return ExtractedPayload{Kind: PayloadRemoteURL, URL: s}, true
	}
}
