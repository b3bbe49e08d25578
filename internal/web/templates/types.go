//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

package templates

// Nav identifies the active navigation entry.
type Nav string

const (
	NavChat        Nav = "chat"
	NavExperiments Nav = "experiments"
	NavSettings    Nav = "settings"
)

type ModelOption struct {
	ID       string
	Name     string
	Provider string // display name
	Selected bool
}

// FormValues echoes the last submitted parameters back into the form.
type FormValues struct {
	Prompt      string
	MultiModel  bool
	Temperature float64
	TopP        float64
	TempMin     float64
	TempMax     float64
	TopPMin     float64
	TopPMax     float64
}

type ChatPageData struct {
	Models      []ModelOption
	ModelsError string
	Form        FormValues
	FormError   string
	Status      StatusView
}

// StatusView is the polled status panel.
type StatusView struct {
	ExperimentID string
	Status       string
	Polling      bool
	Loading      bool
	Error        string
	Responses    int
	Prompt       string
	Results      []ResultView
}

// Live reports whether the panel must keep refreshing itself.
func (v StatusView) Live() bool {
	return v.Polling || v.Loading
}

type ResultView struct {
	Provider    string
	Model       string
	Temperature string
	TopP        string
	Response    string
	Tokens      string
	Time        string
	Success     bool
	Error       string
}

type ExperimentRow struct {
	ID      string
	Name    string
	Created string
	Current bool
}

type ExperimentsPageData struct {
	Experiments []ExperimentRow
	Error       string
}

type BarView struct {
	Label     string
	Value     string
	HeightPct int
}

type MetricView struct {
	Name        string
	Description string
	XAxis       string
	YAxis       string
	Bars        []BarView
}

type ExperimentDetailData struct {
	ID           string
	Name         string
	Prompt       string
	Created      string
	Results      []ResultView
	Metrics      []MetricView
	MetricsError string
	Status       StatusView
}

type KeyRow struct {
	Provider    string
	DisplayName string
	Name        string
	Masked      string
}

type ProviderRow struct {
	ID       string
	Name     string
	NeedsKey bool
	Stored   bool
	Backend  string // "yes", "no" or "unknown"
}

type SettingsPageData struct {
	Keys      []KeyRow
	Providers []ProviderRow
	Error     string
}
