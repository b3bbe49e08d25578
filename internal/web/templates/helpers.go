package templates

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f9fafb;color:#111827}
header{background:#111827;color:#fff;padding:.75rem 1.5rem;display:flex;gap:1.5rem;align-items:center}
header a{color:#d1d5db;text-decoration:none}header a[aria-current=page]{color:#fff;font-weight:600}
main{max-width:1100px;margin:1.5rem auto;padding:0 1rem}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:1rem;margin-bottom:1rem}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(320px,1fr));gap:1rem}
.inline,.actions{display:flex;gap:.5rem;align-items:center;flex-wrap:wrap}
label.model{display:block}
.badge{display:inline-block;padding:.1rem .5rem;border-radius:999px;font-size:.8rem;background:#e0e7ff}
.badge[data-status=completed]{background:#dcfce7}.badge[data-status=failed]{background:#fee2e2}
.badge[data-status=cancelled],.badge[data-status=""]{background:#e5e7eb;color:#6b7280}
.error{color:#b91c1c}.muted{color:#6b7280}
svg.bars{width:100%;height:120px;border-bottom:1px solid #e5e7eb}svg.bars rect{fill:#6366f1}
.labels{display:flex;gap:.5rem}.labels small{flex:1;text-align:center}
table{width:100%;border-collapse:collapse}td,th{padding:.4rem;border-bottom:1px solid #e5e7eb;text-align:left}
textarea{width:100%;min-height:80px}pre{white-space:pre-wrap;margin:0}
`

var styleTag = "<style>" + styles + "</style>"

type navItem struct {
	Nav   Nav
	Href  templ.SafeURL
	Label string
}

var navItems = []navItem{
	{NavChat, "/", "Chat"},
	{NavExperiments, "/experiments", "Experiments"},
	{NavSettings, "/settings", "Settings"},
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func experimentURL(id string) templ.SafeURL {
	return templ.SafeURL("/experiments/" + url.PathEscape(id))
}

func keyDeleteURL(provider string) string {
	return "/api/keys/" + url.PathEscape(provider)
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func statusLabel(v StatusView) string {
	if v.Status == "" && v.Loading {
		return "submitting"
	}
	return v.Status
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Bar chart geometry, in viewBox units. Each bar takes a slot of barSlot
// units and the chart is 100 units tall.
const (
	barSlot  = 10
	barWidth = "8"
)

func barsViewBox(n int) string {
	return "0 0 " + strconv.Itoa(n*barSlot) + " 100"
}

func barX(i int) string {
	return strconv.Itoa(i*barSlot + 1)
}

func barY(b BarView) string {
	return strconv.Itoa(100 - clampPct(b.HeightPct))
}

func barHeight(b BarView) string {
	return strconv.Itoa(clampPct(b.HeightPct))
}

func clampPct(p int) int {
	return max(0, min(p, 100))
}
