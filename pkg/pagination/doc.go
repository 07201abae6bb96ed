// Package pagination defines the value types exchanged between a pagination
// tracker and the code that actually loads data.
//
// A Page is one batch of items plus an opaque cursor. A non-empty cursor means
// more data may exist; an empty cursor marks the end of the list. A Context is
// the read-only snapshot handed to a fetch function: every page loaded so far,
// whether the caller asked for a forced refresh, and a caller-defined object.
//
// Example usage:
//
//	fetch := func(ctx context.Context, pc pagination.Context[Order, Filter]) (pagination.Page[Order], error) {
//		orders, next, err := api.ListOrders(ctx, pc.Object(), pc.NextCursor())
//		if err != nil {
//			return pagination.Page[Order]{}, err
//		}
//		return pagination.NewPage(orders, next), nil
//	}
//
// Decoding a page from a JSON envelope is kept out of the tracker. DecodePage
// reads the common {"items": [...], "links": {"next": "..."}} shape and can be
// pointed at other field names through an Envelope.
package pagination
