package result

// OnCategory runs fn if r belongs to c, and returns r
func OnCategory(r *Result, c Category, fn func(*Result)) *Result {
	if r != nil && r.Category() == c {
		fn(r)
	}
	return r
}

// OnKind runs fn if r is of kind k, and returns r
func OnKind(r *Result, k Kind, fn func(*Result)) *Result {
	if r != nil && r.Is(k) {
		fn(r)
	}
	return r
}

// OnSuccess runs fn for 2xx results
func OnSuccess(r *Result, fn func(*Result)) *Result {
	return OnCategory(r, CategorySuccess, fn)
}

// OnFailure runs fn with the status error of non 2xx results
func OnFailure(r *Result, fn func(*Result, error)) *Result {
	if r == nil {
		return r
	}
	if err := r.Err(); err != nil {
		fn(r, err)
	}
	return r
}

// SwitchCategory replaces r with fn(r) if r belongs to c. fn owns r's
// reference and decides whether to consume it.
func SwitchCategory(r *Result, c Category, fn func(*Result) *Result) *Result {
	if r != nil && r.Category() == c {
		return fn(r)
	}
	return r
}

// SwitchKind replaces r with fn(r) if r is of kind k, see SwitchCategory
func SwitchKind(r *Result, k Kind, fn func(*Result) *Result) *Result {
	if r != nil && r.Is(k) {
		return fn(r)
	}
	return r
}
