package fund

import "errors"

// Construction errors.
var (
	ErrMissingDependency = errors.New("fund tracker requires an authorizer, a transferer and a stats store")
	ErrNoCustody         = errors.New("fund tracker requires a custody account")
)
