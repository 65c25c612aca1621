// Package fabric provides a Go client for the REST API of a Cisco APIC
// fabric controller.
//
// The controller exposes a tree of managed objects addressed by
// distinguished names (DNs) such as uni/tn-Prod/ap-Web/epg-Front. Objects
// are read with /api/node/mo/<dn>.json and /api/node/class/<class>.json
// queries and written by POSTing JSON documents to the object's DN.
//
// # Authentication
//
// Login exchanges credentials for a session token which the client then
// sends as the APIC-Cookie cookie on every call. Calls issued before a
// successful Login fail with ErrNotAuthenticated. RefreshSession extends
// a session before it times out.
//
// # Duplicate creates
//
// POSTing an object with status "created" that already exists makes the
// controller answer with an error whose text ends in "already exists.".
// Under DuplicateIsSuccess (the default) that reply is treated as a no-op
// and the create returns an empty result. Under DuplicateIsError it is an
// *APIError whose IsDuplicate method reports true. The policy is set on
// ClientConfig and may be overridden per call with WithDuplicatePolicy.
//
// # Errors
//
//   - *TransportError: the controller could not be reached
//   - *APIError: the controller answered with a non-2xx status
//   - *AuthError: Login failed, wrapping one of the above
//   - ErrInvalidArgument, ErrMalformedDN: rejected before any request
//
// # Example Usage
//
//	client, err := fabric.New("https://apic.example.net")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "admin", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//
//	tenants, err := client.ListTenants(ctx, fabric.Eq("fvTenant.name", "Prod"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, tenant := range tenants {
//	    fmt.Println(tenant.DN())
//	}
package fabric
