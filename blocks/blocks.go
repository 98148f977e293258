// Package blocks converts the block children of a post into Markdown.
package blocks

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/eringen/notionpress/notion"
)

type textBlock struct {
	RichText []notion.RichText `json:"rich_text"`
	Checked  bool              `json:"checked"`
	Language string            `json:"language"`
	Icon     *struct {
		Emoji string `json:"emoji"`
	} `json:"icon"`
}

type mediaBlock struct {
	Type     string             `json:"type"`
	External *notion.FileObject `json:"external"`
	File     *notion.FileObject `json:"file"`
	URL      string             `json:"url"`
	Caption  []notion.RichText  `json:"caption"`
}

type block struct {
	Type string `json:"type"`

	Paragraph        *textBlock  `json:"paragraph"`
	Heading1         *textBlock  `json:"heading_1"`
	Heading2         *textBlock  `json:"heading_2"`
	Heading3         *textBlock  `json:"heading_3"`
	BulletedListItem *textBlock  `json:"bulleted_list_item"`
	NumberedListItem *textBlock  `json:"numbered_list_item"`
	ToDo             *textBlock  `json:"to_do"`
	Quote            *textBlock  `json:"quote"`
	Code             *textBlock  `json:"code"`
	Callout          *textBlock  `json:"callout"`
	Image            *mediaBlock `json:"image"`
	Bookmark         *mediaBlock `json:"bookmark"`
}

// ToMarkdown renders raw blocks as Markdown. Blocks that cannot be decoded or
// whose type is not supported are skipped.
func ToMarkdown(raw []json.RawMessage) string {
	var out strings.Builder
	prevList := ""
	number := 0

	for _, r := range raw {
		var b block
		if err := json.Unmarshal(r, &b); err != nil {
			continue
		}
		md, ok := render(b, &number, prevList)
		if !ok {
			continue
		}

		list := listKind(b.Type)
		if out.Len() > 0 {
			if list != "" && list == prevList {
				out.WriteString("\n")
			} else {
				out.WriteString("\n\n")
			}
		}
		out.WriteString(md)
		prevList = list
	}
	return out.String()
}

func listKind(t string) string {
	switch t {
	case "bulleted_list_item", "numbered_list_item", "to_do":
		return t
	}
	return ""
}

func render(b block, number *int, prevList string) (string, bool) {
	switch b.Type {
	case "paragraph":
		if b.Paragraph == nil {
			return "", false
		}
		return Inline(b.Paragraph.RichText), true
	case "heading_1":
		return heading(1, b.Heading1)
	case "heading_2":
		return heading(2, b.Heading2)
	case "heading_3":
		return heading(3, b.Heading3)
	case "bulleted_list_item":
		if b.BulletedListItem == nil {
			return "", false
		}
		return "- " + Inline(b.BulletedListItem.RichText), true
	case "numbered_list_item":
		if b.NumberedListItem == nil {
			return "", false
		}
		if prevList != "numbered_list_item" {
			*number = 0
		}
		*number++
		return strconv.Itoa(*number) + ". " + Inline(b.NumberedListItem.RichText), true
	case "to_do":
		if b.ToDo == nil {
			return "", false
		}
		box := "- [ ] "
		if b.ToDo.Checked {
			box = "- [x] "
		}
		return box + Inline(b.ToDo.RichText), true
	case "quote":
		if b.Quote == nil {
			return "", false
		}
		return quote(Inline(b.Quote.RichText)), true
	case "callout":
		if b.Callout == nil {
			return "", false
		}
		text := Inline(b.Callout.RichText)
		if b.Callout.Icon != nil && b.Callout.Icon.Emoji != "" {
			text = b.Callout.Icon.Emoji + " " + text
		}
		return quote(text), true
	case "code":
		if b.Code == nil {
			return "", false
		}
		lang := b.Code.Language
		if lang == "plain text" {
			lang = ""
		}
		code := plain(b.Code.RichText)
		fence := codeFence(code)
		return fence + lang + "\n" + code + "\n" + fence, true
	case "divider":
		return "---", true
	case "image":
		if b.Image == nil {
			return "", false
		}
		src := mediaURL(b.Image)
		if src == "" {
			return "", false
		}
		return "![" + escapeBrackets(plain(b.Image.Caption)) + "](" + src + ")", true
	case "bookmark":
		if b.Bookmark == nil || b.Bookmark.URL == "" {
			return "", false
		}
		label := plain(b.Bookmark.Caption)
		if label == "" {
			label = b.Bookmark.URL
		}
		return "[" + escapeBrackets(label) + "](" + b.Bookmark.URL + ")", true
	}
	return "", false
}

func heading(level int, t *textBlock) (string, bool) {
	if t == nil {
		return "", false
	}
	return strings.Repeat("#", level) + " " + Inline(t.RichText), true
}

func quote(text string) string {
	return "> " + strings.ReplaceAll(text, "\n", "\n> ")
}

func mediaURL(m *mediaBlock) string {
	switch {
	case m.External != nil && m.External.URL != "":
		return m.External.URL
	case m.File != nil:
		return m.File.URL
	}
	return ""
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func plain(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

func escapeBrackets(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

// Inline renders rich text runs with their annotations and links.
func Inline(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(annotate(r))
	}
	return b.String()
}

func annotate(r notion.RichText) string {
	text := r.PlainText
	if strings.TrimSpace(text) == "" {
		return text
	}

	// Markers must hug the text, so surrounding spaces stay outside.
	lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
	trail := text[len(strings.TrimRight(text, " ")):]
	core := strings.Trim(text, " ")

	if a := r.Annotations; a != nil {
		if a.Code {
			core = "`" + core + "`"
		}
		if a.Strikethrough {
			core = "~~" + core + "~~"
		}
		if a.Italic {
			core = "_" + core + "_"
		}
		if a.Bold {
			core = "**" + core + "**"
		}
	}
	if r.Href != "" {
		core = "[" + core + "](" + r.Href + ")"
	}
	return lead + core + trail
}
