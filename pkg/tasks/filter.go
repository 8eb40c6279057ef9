package tasks

// Filter is a model for the rest api filter
type Filter struct {
	Field    string
	Value    interface{}
	Operator string
}

// StatusFilter matches tasks with exactly status
func StatusFilter(status string) Filter {
	return Filter{Field: "status", Value: status}
}
