// Package xraysearch is a Go client for an X-ray imaging catalog.
//
// The catalog exposes two search backends: a full-text relevance engine used
// whenever free text is entered, and a structured, paginated records endpoint
// used for attribute-only filters. A Session owns one filter state, routes it
// to the right backend, discards superseded responses and falls back to the
// structured backend once when the full-text engine is unreachable.
//
//	client, _ := xraysearch.New(ctx, xraysearch.WithBaseURL("http://catalog:8000"))
//	defer client.Close()
//
//	sess := client.NewSession(ctx, "?body_part=Chest")
//	defer sess.Close()
//
//	sess.Set(ctx, xraysearch.FieldSearch, "fracture")
//	out, _ := sess.Wait(ctx)
//	for _, it := range out.Items {
//	    fmt.Println(it.ID, it.Diagnosis)
//	}
//
// Record detail, submission, filter options, suggestions and statistics are
// available directly on Client.
package xraysearch
