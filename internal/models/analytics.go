package models

// Rate is a share of a total together with the absolute count behind it.
type Rate struct {
	Rate float64 `json:"rate"`
	Real int64   `json:"real"`
}

// CategoryRates is the distribution of live posts over categories.
type CategoryRates struct {
	AI         Rate `json:"ai"`
	Technology Rate `json:"tech"`
	Business   Rate `json:"business"`
	Money      Rate `json:"money"`
}

// BloggerRates splits live users into those with at least one live post and the rest.
type BloggerRates struct {
	Blogger Rate `json:"blogger"`
	Viewer  Rate `json:"viewer"`
}

// HistogramBucket is one interval of the post creation histogram.
type HistogramBucket struct {
	Key         int64            `json:"key"`
	KeyAsString string           `json:"key_as_string"`
	DocCount    int64            `json:"doc_count"`
	Categories  map[string]int64 `json:"categories"`
}
