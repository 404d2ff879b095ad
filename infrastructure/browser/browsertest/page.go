// Package browsertest provides a fake browser page for tests: an HTML document
// that the test mutates on a schedule while the code under test polls it,
// reachable in-process (NewDriver) or over the W3C WebDriver protocol (NewServer).
package browsertest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"selene/domain/entities"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	gohtml "golang.org/x/net/html"
)

// BaseURL - is where pages opened with a body live
const BaseURL = "http://selene.test/page.html"

var (
	ErrInvalidSelector   = errors.New("invalid selector")
	ErrUnsupportedScript = errors.New("script not supported by fake page")
)

// ScriptHandler - emulates JavaScript for Page.ExecuteScript. Element arguments
// arrive as ElementRef.
type ScriptHandler func(p *Page, script string, args []interface{}) (interface{}, error)

// ElementRef - identifies an element handle inside script arguments
type ElementRef struct {
	ID string
}

// Page - is a single-tab fake browser
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	url     string
	handles map[string]*gohtml.Node
	ids     map[*gohtml.Node]string
	seq     int
	timers  []*time.Timer
	script  ScriptHandler
	clicked []string
}

// NewPage - returns a blank page
func NewPage() *Page {
	p := &Page{
		handles: make(map[string]*gohtml.Node),
		ids:     make(map[*gohtml.Node]string),
	}
	p.load("about:blank", "")
	return p
}

// OpenedWithBody - loads a page at BaseURL with the given body markup
func (p *Page) OpenedWithBody(body string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load(BaseURL, body)
	return p
}

// OpenedEmpty - loads a page at BaseURL with an empty body
func (p *Page) OpenedEmpty() *Page {
	return p.OpenedWithBody("")
}

// After - runs fn once d has elapsed
func (p *Page) After(d time.Duration, fn func(p *Page)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, time.AfterFunc(d, func() { fn(p) }))
	return p
}

// LoadBodyAfter - replaces the whole body after d, detaching every old element
func (p *Page) LoadBodyAfter(d time.Duration, body string) *Page {
	return p.After(d, func(p *Page) { p.SetBody(body) })
}

// SetStyleAfter - sets the style attribute of the first element matching selector after d
func (p *Page) SetStyleAfter(d time.Duration, selector, style string) *Page {
	return p.After(d, func(p *Page) { _ = p.SetAttribute(selector, "style", style) })
}

// Stop - cancels mutations that have not fired yet
func (p *Page) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

// SetBody - replaces the body, keeping the current URL
func (p *Page) SetBody(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load(p.url, body)
}

// SetAttribute - sets an attribute on the first element matching selector
func (p *Page) SetAttribute(selector, name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	}
	n := sel.MatchFirst(p.root())
	if n == nil {
		return fmt.Errorf("%w: %s", entities.ErrNoSuchElement, selector)
	}
	setAttr(n, name, value)
	return nil
}

// SetValue - sets the value attribute of a referenced element
func (p *Page) SetValue(ref ElementRef, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref.ID)
	if err != nil {
		return err
	}
	setAttr(n, "value", value)
	return nil
}

// HandleScripts - installs the JavaScript emulation used by ExecuteScript
func (p *Page) HandleScripts(h ScriptHandler) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = h
	return p
}

// URL - returns the current page URL
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Clicked - returns the outer tag descriptions of clicked elements, oldest first
func (p *Page) Clicked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicked...)
}

func (p *Page) load(pageURL, body string) {
	src := "<html><head><title>" + titleFor(pageURL) + "</title></head><body>" + body + "</body></html>"
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("browsertest: parse page: %v", err))
	}
	p.doc = doc
	p.url = pageURL
}

func titleFor(pageURL string) string {
	if pageURL == "about:blank" {
		return ""
	}
	return "Selene Test Page"
}

func (p *Page) root() *gohtml.Node {
	return p.doc.Nodes[0]
}

func (p *Page) handle(n *gohtml.Node) string {
	if id, ok := p.ids[n]; ok {
		return id
	}
	p.seq++
	id := "node-" + strconv.Itoa(p.seq)
	p.ids[n] = id
	p.handles[id] = n
	return id
}

// node - resolves a handle, failing with ErrStaleElement once the node left the document
func (p *Page) node(id string) (*gohtml.Node, error) {
	n, ok := p.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown element %s", entities.ErrStaleElement, id)
	}
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	if top != p.root() {
		return nil, fmt.Errorf("%w: element %s is no longer attached to the DOM", entities.ErrStaleElement, id)
	}
	return n, nil
}

// Find - returns handles of elements under parent ("" for the document) matching the locator
func (p *Page) Find(parent string, locator entities.Locator) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	scope := p.root()
	if parent != "" {
		n, err := p.node(parent)
		if err != nil {
			return nil, err
		}
		scope = n
	}

	var matches []*gohtml.Node
	switch locator.By {
	case entities.ByCSSSelector, entities.ByTagName:
		sel, err := cascadia.Compile(locator.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
		}
		for _, n := range sel.MatchAll(scope) {
			if n != scope {
				matches = append(matches, n)
			}
		}
	case entities.ByLinkText, entities.ByPartialLinkText:
		sel := cascadia.MustCompile("a")
		for _, n := range sel.MatchAll(scope) {
			text := visibleText(n)
			if text == locator.Value || (locator.By == entities.ByPartialLinkText && strings.Contains(text, locator.Value)) {
				matches = append(matches, n)
			}
		}
	default:
		return nil, fmt.Errorf("%w: strategy %q", ErrInvalidSelector, locator.By)
	}

	ids := make([]string, 0, len(matches))
	for _, n := range matches {
		ids = append(ids, p.handle(n))
	}
	return ids, nil
}

// Displayed - reports whether the element and its ancestors are rendered
func (p *Page) Displayed(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return false, err
	}
	return displayed(n), nil
}

// Enabled - reports whether a handle lacks the disabled attribute
func (p *Page) Enabled(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return false, err
	}
	_, disabled := attr(n, "disabled")
	return !disabled, nil
}

// Selected - reports whether a handle is checked or selected
func (p *Page) Selected(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return false, err
	}
	_, checked := attr(n, "checked")
	_, selected := attr(n, "selected")
	return checked || selected, nil
}

// Text - returns the rendered text, empty for hidden elements
func (p *Page) Text(id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return "", err
	}
	if !displayed(n) {
		return "", nil
	}
	return visibleText(n), nil
}

// Attribute - returns the attribute value and whether it is set
func (p *Page) Attribute(id, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return "", false, err
	}
	v, ok := attr(n, name)
	return v, ok, nil
}

// CSSValue - returns a property declared in the element's style attribute
func (p *Page) CSSValue(id, property string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return "", err
	}
	return styleOf(n)[strings.ToLower(property)], nil
}

// TagName - returns the lowercase tag of a handle
func (p *Page) TagName(id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return "", err
	}
	return n.Data, nil
}

// Click - follows links and toggles checkboxes; hidden elements are not interactable
func (p *Page) Click(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return err
	}
	if !displayed(n) {
		return fmt.Errorf("%w: %s is not displayed", entities.ErrNotInteractable, describe(n))
	}
	p.clicked = append(p.clicked, describe(n))
	if _, disabled := attr(n, "disabled"); disabled {
		return nil
	}

	switch n.Data {
	case "a":
		if href, ok := attr(n, "href"); ok {
			p.follow(href)
		}
	case "input":
		if t, _ := attr(n, "type"); t == "checkbox" || t == "radio" {
			if _, checked := attr(n, "checked"); checked {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "checked")
			}
		}
	}
	return nil
}

func (p *Page) follow(href string) {
	base, err := url.Parse(p.url)
	if err != nil {
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	target := base.ResolveReference(ref).String()
	if strings.HasPrefix(href, "#") {
		p.url = target
		return
	}
	p.load(target, "")
}

// SendKeys - appends keys to the value of an input
func (p *Page) SendKeys(id, keys string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return err
	}
	if !displayed(n) {
		return fmt.Errorf("%w: %s is not displayed", entities.ErrNotInteractable, describe(n))
	}
	value, _ := attr(n, "value")
	value += strings.ReplaceAll(keys, entities.EnterKey, "")
	setAttr(n, "value", value)
	return nil
}

// Clear - empties the value of an input
func (p *Page) Clear(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(id)
	if err != nil {
		return err
	}
	if !displayed(n) {
		return fmt.Errorf("%w: %s is not displayed", entities.ErrNotInteractable, describe(n))
	}
	setAttr(n, "value", "")
	return nil
}

// Navigate - loads an empty page at rawURL
func (p *Page) Navigate(rawURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load(rawURL, "")
}

// Title - returns the text of the title element
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find("title").Text()
}

// Source - renders the current document as html
func (p *Page) Source() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return goquery.OuterHtml(p.doc.Selection)
}

// ExecuteScript - hands the script to the installed ScriptHandler
func (p *Page) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	p.mu.Lock()
	h := p.script
	p.mu.Unlock()
	if h == nil {
		return nil, ErrUnsupportedScript
	}
	return h(p, script, args)
}

// Screenshot - renders a blank 1x1 PNG
func (p *Page) Screenshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func attr(n *gohtml.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *gohtml.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, gohtml.Attribute{Key: name, Val: value})
}

func removeAttr(n *gohtml.Node, name string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func styleOf(n *gohtml.Node) map[string]string {
	style := make(map[string]string)
	raw, _ := attr(n, "style")
	for _, decl := range strings.Split(raw, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		style[strings.ToLower(strings.TrimSpace(prop))] = strings.ToLower(strings.TrimSpace(value))
	}
	return style
}

func rendered(n *gohtml.Node) bool {
	switch n.Data {
	case "head", "script", "style", "title", "template":
		return false
	}
	if _, hidden := attr(n, "hidden"); hidden {
		return false
	}
	style := styleOf(n)
	return style["display"] != "none" && style["visibility"] != "hidden"
}

func displayed(n *gohtml.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == gohtml.ElementNode && !rendered(cur) {
			return false
		}
	}
	return true
}

func visibleText(n *gohtml.Node) string {
	var parts []string
	var walk func(*gohtml.Node)
	walk = func(cur *gohtml.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case gohtml.TextNode:
				parts = append(parts, strings.Fields(c.Data)...)
			case gohtml.ElementNode:
				if rendered(c) {
					walk(c)
				}
			}
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func describe(n *gohtml.Node) string {
	var b strings.Builder
	b.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		if a.Key == "id" || a.Key == "href" || a.Key == "class" {
			fmt.Fprintf(&b, " %s=%q", a.Key, a.Val)
		}
	}
	b.WriteString(">")
	return b.String()
}
