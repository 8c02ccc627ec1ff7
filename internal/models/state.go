package models

// Phase is a step of a load cycle.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseFetchingSource Phase = "fetching_source"
	PhaseMerging        Phase = "merging"
	PhaseClassifying    Phase = "classifying"
	PhaseDone           Phase = "done"
)

// BannerKind separates the two independent non-fatal error banners.
type BannerKind string

const (
	BannerSourceUnavailable    BannerKind = "source_unavailable"
	BannerClassificationFailed BannerKind = "classification_failed"
)

// ParseBannerKind validates a banner kind coming from a client.
func ParseBannerKind(s string) (BannerKind, bool) {
	switch BannerKind(s) {
	case BannerSourceUnavailable, BannerClassificationFailed:
		return BannerKind(s), true
	}
	return "", false
}

// Banner is a dismissible, non-fatal error notice.
type Banner struct {
	Kind    BannerKind `json:"kind"`
	Message string     `json:"message"`
	Count   int        `json:"count,omitempty"`
}

// Progress counts resolved classifications in the current batch.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// State is the observable view of the project collection.
type State struct {
	CycleID         string         `json:"cycleId,omitempty"`
	Phase           Phase          `json:"phase"`
	Collection      []CatalogEntry `json:"collection"`
	IsLoadingSource bool           `json:"isLoadingSource"`
	IsClassifying   bool           `json:"isClassifying"`
	Progress        Progress       `json:"classificationProgress"`
	LastError       *Banner        `json:"lastError,omitempty"`
	Banners         []Banner       `json:"banners,omitempty"`
}

// Banner returns the banner of the given kind, if present.
func (s State) Banner(kind BannerKind) (Banner, bool) {
	for _, b := range s.Banners {
		if b.Kind == kind {
			return b, true
		}
	}
	return Banner{}, false
}

// Clone deep-copies the state so it can be handed to observers.
func (s State) Clone() State {
	out := s
	out.Collection = CloneEntries(s.Collection)
	if s.LastError != nil {
		b := *s.LastError
		out.LastError = &b
	}
	if s.Banners != nil {
		out.Banners = append([]Banner(nil), s.Banners...)
	}
	return out
}
