package delivery

import "context"

// Delivery is a long-running server started by a command's fx app.
type Delivery interface {
	Serve(ctx context.Context) error
}
