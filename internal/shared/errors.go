package shared

import "errors"

// ErrInvalidCredentials indicates login failure. Unknown accounts, wrong
// passwords and deactivated accounts all map to it.
var ErrInvalidCredentials = errors.New("invalid credentials")
