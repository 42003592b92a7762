// Package messages holds the operator-facing strings of panelctl and their translations.
package messages

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/FalixNodes/falixpanel/internal/server"
)

// Message keys
const (
	ReinstallConfirm = "server.reinstall.confirm"
	ReinstallFailed  = "server.reinstall.failed"
	ReinstallNone    = "server.reinstall.none"
)

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

var cat = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	// Arguments of ReinstallFailed: name, id, node, error
	for _, m := range []struct {
		tag  language.Tag
		key  string
		text string
	}{
		{language.English, ReinstallConfirm, "Are you sure you want to reinstall against a group of servers? Each server will be stopped during the reinstall process."},
		{language.English, ReinstallFailed, `Failed to reinstall server "%[1]s" (#%[2]s) on node "%[3]s" with error: %[4]s`},
		{language.English, ReinstallNone, "No servers matched, nothing to reinstall."},
		{language.German, ReinstallConfirm, "Sollen wirklich mehrere Server neu installiert werden? Jeder Server wird dabei gestoppt."},
		{language.German, ReinstallFailed, `Neuinstallation von Server "%[1]s" (#%[2]s) auf Node "%[3]s" fehlgeschlagen: %[4]s`},
		{language.German, ReinstallNone, "Keine passenden Server gefunden, nichts zu tun."},
	} {
		if err := b.SetString(m.tag, m.key, m.text); err != nil {
			panic(fmt.Sprintf("messages: %s/%s: %v", m.tag, m.key, err))
		}
	}

	return b
}

// Printer renders messages for one locale
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// New returns a printer for the closest supported locale, English when unknown
func New(locale string) *Printer {
	tag := language.English
	if requested, err := language.Parse(locale); err == nil {
		_, idx, confidence := matcher.Match(requested)
		if confidence != language.No {
			tag = supported[idx]
		}
	}

	return &Printer{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// Language returns the locale the printer resolved to
func (p *Printer) Language() language.Tag {
	return p.tag
}

// ReinstallConfirmPrompt is asked before a batch starts
func (p *Printer) ReinstallConfirmPrompt() string {
	return p.p.Sprintf(ReinstallConfirm)
}

// ReinstallFailedLine describes one failed server. The id is passed as text so
// it is not rendered with locale digit grouping.
func (p *Printer) ReinstallFailedLine(s server.Server, detail string) string {
	return p.p.Sprintf(ReinstallFailed, s.Name, strconv.Itoa(s.ID), s.Node.Name, detail)
}

// NothingToReinstall is printed when the selection is empty
func (p *Printer) NothingToReinstall() string {
	return p.p.Sprintf(ReinstallNone)
}
