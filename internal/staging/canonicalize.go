// Package staging canonicalizes the typed table into the clean vocabulary the
// validation gates expect.
package staging

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/churnlab/churnprep/internal/logger"
	"github.com/churnlab/churnprep/internal/schema"
	"github.com/churnlab/churnprep/internal/table"
)

// Sentinel phrases in the raw extract and the tokens that replace them.
const (
	NoPhonePhrase    = "No phone service"
	NoInternetPhrase = "No internet service"
)

// YesNoColumns hold a yes/no answer, possibly with a not-applicable sentinel.
var YesNoColumns = append([]string{schema.ColPhoneService, schema.ColMultipleLines}, schema.InternetAddonColumns...)

// Report counts the cells each rule rewrote.
type Report struct {
	Trimmed    int // whitespace removed or NFC form differed
	Sentinels  int
	CaseFolded int
}

// Canonicalize returns a cleaned copy of in:
//
//  1. every string cell is NFC-normalized and trimmed,
//  2. "No phone service" in multiple_lines becomes NoPhone and
//     "No internet service" in the add-on columns becomes NoInternet,
//  3. yes/no answers in any letter case become Yes or No.
//
// Nulls are left alone and columns not present in in are skipped. It never fails.
func Canonicalize(in *table.Table) (*table.Table, Report) {
	out := in.Clone()
	var rep Report

	for _, col := range out.Columns() {
		if col.Kind != table.KindString {
			continue
		}
		rewriteColumn(out, col.Name, func(s string) string {
			clean := strings.TrimSpace(norm.NFC.String(s))
			if clean != s {
				rep.Trimmed++
			}
			return clean
		})
	}

	rep.Sentinels += replaceSentinel(out, schema.ColMultipleLines, NoPhonePhrase, schema.TokenNoPhone)
	for _, col := range schema.InternetAddonColumns {
		rep.Sentinels += replaceSentinel(out, col, NoInternetPhrase, schema.TokenNoInternet)
	}

	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)
	for _, col := range YesNoColumns {
		rewriteColumn(out, col, func(s string) string {
			folded := lower.String(s)
			if folded != "yes" && folded != "no" {
				return s
			}
			canonical := title.String(folded)
			if canonical != s {
				rep.CaseFolded++
			}
			return canonical
		})
	}

	return out, rep
}

// Log writes the rewrite counts at info level.
func (r Report) Log(log logger.Logger, rows int) {
	log.Info("canonicalized typed table",
		logger.Int("rows", rows),
		logger.Int("trimmed", r.Trimmed),
		logger.Int("sentinels", r.Sentinels),
		logger.Int("case_folded", r.CaseFolded))
}

func replaceSentinel(t *table.Table, col, phrase, token string) int {
	n := 0
	rewriteColumn(t, col, func(s string) string {
		if strings.EqualFold(s, phrase) {
			n++
			return token
		}
		return s
	})
	return n
}

// rewriteColumn applies fn to every non-null string cell of col.
func rewriteColumn(t *table.Table, col string, fn func(string) string) {
	c, ok := t.Column(col)
	if !ok || c.Kind != table.KindString {
		return
	}
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, col)
		if v.IsNull() {
			continue
		}
		if next := fn(v.Str()); next != v.Str() {
			// kinds match, Set cannot fail
			_ = t.Set(i, col, table.Str(next))
		}
	}
}
