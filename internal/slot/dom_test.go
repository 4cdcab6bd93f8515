package slot

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func element(style string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "div"}
	if style != "" {
		n.Attr = []html.Attribute{{Key: "style", Val: style}}
	}
	return n
}

func TestHideShow(t *testing.T) {
	tests := []struct {
		name     string
		style    string
		hidden   string
		shown    string
		hasStyle bool
	}{
		{"no style", "", "display: none", "", false},
		{"keeps other declarations", "color: red", "color: red; display: none", "color: red", true},
		{"already hidden", "display:none; color: red", "color: red; display: none", "color: red", true},
		{"block display kept", "display: block", "display: block; display: none", "display: block", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := element(tt.style)

			Hide(n)
			if got, _ := Attr(n, "style"); got != tt.hidden {
				t.Errorf("after Hide style = %q, want %q", got, tt.hidden)
			}
			if !IsHidden(n) {
				t.Error("IsHidden() = false after Hide")
			}

			Show(n)
			got, ok := Attr(n, "style")
			if ok != tt.hasStyle || got != tt.shown {
				t.Errorf("after Show style = %q (present %v), want %q (present %v)", got, ok, tt.shown, tt.hasStyle)
			}
			if IsHidden(n) {
				t.Error("IsHidden() = true after Show")
			}
		})
	}
}

func TestHideIsIdempotent(t *testing.T) {
	n := element("")
	Hide(n)
	Hide(n)
	if got, _ := Attr(n, "style"); got != "display: none" {
		t.Errorf("style = %q, want exactly one declaration", got)
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		style string
		want  bool
	}{
		{"", false},
		{"display: none", true},
		{"DISPLAY : None", true},
		{"display: none !important", true},
		{"display: flex", false},
		{"visibility: hidden", false},
	}
	for _, tt := range tests {
		if got := IsHidden(element(tt.style)); got != tt.want {
			t.Errorf("IsHidden(%q) = %v, want %v", tt.style, got, tt.want)
		}
	}
}

func TestSetTextAndAppendHTML(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "section"}
	if err := AppendHTML(n, `<p>old</p>`); err != nil {
		t.Fatal(err)
	}

	SetText(n, "3 goals <due>")
	if got := Text(n); got != "3 goals <due>" {
		t.Errorf("Text() = %q", got)
	}

	if err := AppendHTML(n, `<ul><li>a</li><li>b</li></ul>`); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		t.Fatal(err)
	}
	want := `<section>3 goals &lt;due&gt;<ul><li>a</li><li>b</li></ul></section>`
	if buf.String() != want {
		t.Errorf("Render() = %s, want %s", buf.String(), want)
	}
}

func TestSetAttr(t *testing.T) {
	n := element("")
	SetAttr(n, "title", "a")
	SetAttr(n, "title", "b")
	if len(n.Attr) != 1 {
		t.Fatalf("len(Attr) = %d, want 1", len(n.Attr))
	}
	if v, _ := Attr(n, "title"); v != "b" {
		t.Errorf("title = %q, want b", v)
	}
	RemoveAttr(n, "title")
	if _, ok := Attr(n, "title"); ok {
		t.Error("RemoveAttr() kept the attribute")
	}
}

func TestContainerKey(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(
		`<html><body><div></div><p></p><div id="x"></div><div><span></span></div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	body := FindByID(doc, "x").Parent

	var divs []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" {
			divs = append(divs, c)
		}
	}

	tests := []struct {
		node *html.Node
		want string
	}{
		{divs[0], "/html[1]/body[1]/div[1]"},
		{divs[1], "#x"},
		{divs[2], "/html[1]/body[1]/div[3]"},
		{divs[2].FirstChild, "/html[1]/body[1]/div[3]/span[1]"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := ContainerKey(tt.node); got != tt.want {
			t.Errorf("ContainerKey() = %q, want %q", got, tt.want)
		}
	}
}
