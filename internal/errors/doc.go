// Package errors provides typed error values for the fnauth application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Transport errors: Socket failures (ErrConnection, ErrTimeout)
//   - Protocol errors: Bad server responses (ErrProtocol, ErrAuth)
//   - Crypto errors: Key material or padding failures (ErrCrypto)
//   - Lifecycle errors: Refresh cascade outcomes (ErrRefreshExhausted)
//
// # Usage
//
// Return errors from internal packages:
//
//	if resp.Errno != nil {
//	    return fmt.Errorf("%w: %s", kerrors.ErrAuth, resp.Message())
//	}
//
// Handle errors in the CLI layer:
//
//	err := mgr.Refresh(ctx)
//	if errors.Is(err, kerrors.ErrRefreshExhausted) {
//	    // Tell the user to log in again
//	}
//
// The refresh cascade treats ErrCrypto specially: it indicates corrupted
// persisted state and is surfaced immediately instead of falling through
// to the next strategy.
package errors
