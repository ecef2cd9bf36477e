package frontend

import (
	"context"
	"io"

	"github.com/a-h/templ"
	templruntime "github.com/a-h/templ/runtime"
	"github.com/yellowbridge/lamentwall/internal/app/locale"
)

// markup writes one component into the shared templ render buffer. The first
// write error sticks and later writes are dropped.
type markup struct {
	buf *templruntime.Buffer
	err error
}

func (m *markup) raw(parts ...string) {
	for _, p := range parts {
		if m.err != nil {
			return
		}
		_, m.err = m.buf.WriteString(p)
	}
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (m *markup) attr(name, value string) {
	m.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// url writes a link attribute, replacing unsafe schemes the way templ does.
func (m *markup) url(name, value string) {
	m.attr(name, string(templ.URL(value)))
}

func (m *markup) classes(classes ...any) {
	m.attr("class", templ.Classes(classes...).String())
}

func (m *markup) child(ctx context.Context, c templ.Component) {
	if c == nil || m.err != nil {
		return
	}
	m.err = c.Render(ctx, m.buf)
}

// component adapts a builder func to templ.Component. Nested components
// share the outer buffer, which is flushed once the outermost one returns.
func component(fn func(ctx context.Context, m *markup)) templ.Component {
	return templruntime.GeneratedTemplate(func(in templruntime.GeneratedComponentInput) (err error) {
		ctx := in.Context
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, existing := templruntime.GetBuffer(in.Writer)
		if !existing {
			defer func() {
				if releaseErr := templruntime.ReleaseBuffer(buf); err == nil {
					err = releaseErr
				}
			}()
		}
		m := markup{buf: buf}
		fn(ctx, &m)
		return m.err
	})
}

// page places body inside the document Layout as its children.
func page(shell Shell, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(shell).Render(templ.WithChildren(ctx, body), w)
	})
}

// href prefixes a site path with the request's locale.
func href(ctx context.Context, path string) string {
	return locale.Href(locale.FromContext(ctx), path)
}
