package scraper

import (
	"encoding/json"
	"fmt"
)

// extraction is the result of extractScript.
type extraction struct {
	AccountValue string       `json:"accountValue"`
	DisplayName  string       `json:"displayName"`
	HasValue     bool         `json:"hasValue"`
	HasName      bool         `json:"hasName"`
	Rows         []extractRow `json:"rows"`
	LoginForm    bool         `json:"loginForm"`
	ReadyState   string       `json:"readyState"`
}

type extractRow struct {
	Cells  []string `json:"cells"`
	Header bool     `json:"header"`
}

// ready reports whether both required fields are rendered with text.
func (e *extraction) ready() bool {
	return e.HasValue && e.HasName && e.AccountValue != "" && e.DisplayName != ""
}

// sameAs reports whether two reads agree on every field the normalizer uses.
func (e *extraction) sameAs(o *extraction) bool {
	if o == nil || e.AccountValue != o.AccountValue || e.DisplayName != o.DisplayName || len(e.Rows) != len(o.Rows) {
		return false
	}
	for i := range e.Rows {
		a, b := e.Rows[i], o.Rows[i]
		if a.Header != b.Header || len(a.Cells) != len(b.Cells) {
			return false
		}
		for j := range a.Cells {
			if a.Cells[j] != b.Cells[j] {
				return false
			}
		}
	}
	return true
}

// authState is the result of authStateScript.
type authState struct {
	Form       bool   `json:"form"`
	Button     bool   `json:"button"`
	ReadyState string `json:"readyState"`
}

func (a *authState) loggedOut() bool {
	return a.Form || a.Button
}

const visibleFn = `const visible = (el) => !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`

const loginControlFn = `const loginControl = (label) => {
  if (!label) return null;
  label = label.toLowerCase();
  return Array.from(document.querySelectorAll("button, a, span, div[role=button]"))
    .find(el => visible(el) && (el.innerText || "").trim().toLowerCase() === label) || null;
};`

// extractScript reads the account value, display name and holdings rows in one pass.
func extractScript(s Selectors) string {
	return fmt.Sprintf(`(() => {
  %s
  const text = (el) => el ? (el.innerText || el.textContent || "").trim() : "";
  const value = document.querySelector(%s);
  const name = document.querySelector(%s);
  const table = document.querySelector(%s);
  const rows = [];
  if (table) {
    table.querySelectorAll("tr").forEach(tr => {
      const tds = tr.querySelectorAll("td");
      const ths = tr.querySelectorAll("th");
      const cells = Array.from(tds.length ? tds : ths).map(text);
      rows.push({cells: cells, header: tds.length === 0 && ths.length > 0});
    });
  }
  const form = visible(document.querySelector(%s)) && visible(document.querySelector(%s));
  return {
    accountValue: text(value),
    displayName: text(name),
    hasValue: !!value,
    hasName: !!name,
    rows: rows,
    loginForm: form,
    readyState: document.readyState
  };
})()`, visibleFn, jsString(s.AccountValue), jsString(s.PortfolioName), jsString(s.HoldingsTable),
		jsString(s.Username), jsString(s.Password))
}

// authStateScript reports whether the login form or the login control is visible.
func authStateScript(s Selectors) string {
	return fmt.Sprintf(`(() => {
  %s
  %s
  const form = visible(document.querySelector(%s)) && visible(document.querySelector(%s));
  return {form: form, button: loginControl(%s) !== null, readyState: document.readyState};
})()`, visibleFn, loginControlFn, jsString(s.Username), jsString(s.Password), jsString(s.LoginButton))
}

// revealLoginScript clicks the control that opens the login form, if shown.
func revealLoginScript(s Selectors) string {
	return fmt.Sprintf(`(() => {
  %s
  %s
  const el = loginControl(%s);
  if (el) { el.click(); return true; }
  return false;
})()`, visibleFn, loginControlFn, jsString(s.LoginButton))
}

// linksScript returns the absolute href of every anchor on the page.
const linksScript = `Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
