package resolution

import "errors"

// ErrMissingDependency is returned when the engine is built without its
// collaborators.
var ErrMissingDependency = errors.New("resolution engine requires an authorizer, scores and markets")
