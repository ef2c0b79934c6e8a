// Package render projects conversation messages onto the widget page and the terminal.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

const messageTemplate = `<div class="{{classes .}}" data-id="{{.ID}}">{{nl2br .Text}}` +
	`{{if .HasLinks}}<div class="link-container">` +
	`{{range .Links}}<a href="{{.URL}}" target="_blank" rel="noopener noreferrer" class="source-link">{{.Label}}</a>{{end}}` +
	`</div>{{end}}</div>`

var messageTmpl = template.Must(template.New("message").Funcs(template.FuncMap{
	"nl2br":   nl2br,
	"classes": classes,
}).Parse(messageTemplate))

// HTML 渲染单条消息。文本与链接标签都会被转义，换行变为 <br>。
func HTML(m chat.Message) template.HTML {
	var buf bytes.Buffer
	if err := messageTmpl.Execute(&buf, m); err != nil {
		// 模板只读取已知字段，执行失败只可能来自编程错误。
		panic(err)
	}
	return template.HTML(buf.String())
}

// Transcript renders messages in order.
func Transcript(messages []chat.Message) template.HTML {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(HTML(m)))
	}
	return template.HTML(b.String())
}

func nl2br(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = template.HTMLEscapeString(line)
	}
	return template.HTML(strings.Join(lines, "<br>"))
}

func classes(m chat.Message) string {
	names := []string{"message", string(m.Role) + "-message"}
	if m.Loading {
		names = append(names, "loading")
	}
	if m.Error {
		names = append(names, "error")
	}
	return strings.Join(names, " ")
}
