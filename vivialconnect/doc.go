// Package vivialconnect is a client for the VivialConnect messaging API.
//
// The API exposes accounts, messages, phone numbers, users, logs, callback
// configurations and connectors as REST resources. Each is reached through a
// service on Client:
//
//	logger := zerolog.New(os.Stderr)
//	client, err := vivialconnect.New(requestor.Credentials{
//		APIKey:    "your-api-key",
//		APISecret: "your-api-secret",
//		AccountID: "12345",
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	msg := client.Messages.New(map[string]any{
//		"from_number": "+16125551212",
//		"to_number":   "+16125553434",
//		"body":        "Howdy!",
//	})
//	if err := client.Messages.Send(ctx, msg); err != nil {
//		log.Fatal(err)
//	}
//
// # Resources
//
// Every resource value embeds *resource.Resource, so attributes are
// available through Get, String, Int and friends under their wire names,
// alongside a few typed accessors. Values are local copies of remote state;
// call Reload to refresh them.
//
// # Error Handling
//
// Failed requests return *requestor.Error and match the requestor sentinels
// with errors.Is:
//
//	msg, err := client.Messages.Find(ctx, 42)
//	if errors.Is(err, requestor.ErrResourceNotFound) {
//		// handle missing message
//	}
//
// Local validation failures match requestor.ErrResource.
package vivialconnect
