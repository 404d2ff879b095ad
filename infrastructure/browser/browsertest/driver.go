package browsertest

import (
	"context"
	"sync"

	"selene/domain/entities"
	"selene/domain/interfaces"
)

// Driver - drives a Page in-process
type Driver struct {
	page *Page

	mu     sync.Mutex
	quit   bool
	opened []string
}

// NewDriver - returns a Driver over p
func NewDriver(p *Page) *Driver {
	return &Driver{page: p}
}

// Page - returns the driven page
func (d *Driver) Page() *Page {
	return d.page
}

// Opened - lists URLs passed to Open
func (d *Driver) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.opened...)
}

// Quitted - reports whether Quit was called
func (d *Driver) Quitted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

func (d *Driver) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	return findIn(ctx, d.page, "", locator)
}

func findIn(ctx context.Context, p *Page, parent string, locator entities.Locator) ([]interfaces.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := p.Find(parent, locator)
	if err != nil {
		return nil, err
	}
	elements := make([]interfaces.WebElement, 0, len(ids))
	for _, id := range ids {
		elements = append(elements, &element{page: p, id: id})
	}
	return elements, nil
}

func (d *Driver) Open(ctx context.Context, url string) error {
	d.mu.Lock()
	d.opened = append(d.opened, url)
	d.mu.Unlock()
	d.page.Navigate(url)
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	return d.page.URL(), nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	return d.page.Title(), nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	converted := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if e, ok := arg.(*element); ok {
			arg = ElementRef{ID: e.id}
		}
		converted = append(converted, arg)
	}
	return d.page.ExecuteScript(script, converted)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Screenshot()
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	return d.page.Source()
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit = true
	d.page.Stop()
	return nil
}

type element struct {
	page *Page
	id   string
}

func (e *element) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.WebElement, error) {
	return findIn(ctx, e.page, e.id, locator)
}

func (e *element) Click(ctx context.Context) error {
	return e.page.Click(e.id)
}

func (e *element) DoubleClick(ctx context.Context) error {
	if err := e.page.Click(e.id); err != nil {
		return err
	}
	return e.page.Click(e.id)
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	return e.page.SendKeys(e.id, keys)
}

func (e *element) Clear(ctx context.Context) error {
	return e.page.Clear(e.id)
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.page.Text(e.id)
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	v, _, err := e.page.Attribute(e.id, name)
	return v, err
}

func (e *element) CSSValue(ctx context.Context, property string) (string, error) {
	return e.page.CSSValue(e.id, property)
}

func (e *element) TagName(ctx context.Context) (string, error) {
	return e.page.TagName(e.id)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	return e.page.Displayed(e.id)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	return e.page.Enabled(e.id)
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	return e.page.Selected(e.id)
}

var _ interfaces.Driver = (*Driver)(nil)
