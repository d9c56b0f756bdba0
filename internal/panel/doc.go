// Package panel talks to a Plesk panel.
//
// A Client sends API-RPC packets to the panel's agent endpoint over HTTP(S)
// and runs the privileged command-line utilities installed next to it
// (secret_key, filemng, certmng). It owns the API secret used for every
// request:
//
//	client := panel.NewClient(panel.Options{Target: target})
//	defer client.Close()
//
//	if err := client.CheckVersion(); err != nil {
//	    return err
//	}
//	resp, err := client.Request(packet.Obj("packet", packet.Obj("server",
//	    packet.Obj("get_protos", packet.Empty()))))
//
// When no secret is configured the client creates one with secret_key on
// first use and deletes it again in Close. A configured secret is never
// deleted.
//
// Endpoint resolution happens once per client. Explicit scheme or port
// options win; otherwise the admin web server config is scanned for listen
// directives, falling back to https on port 8443.
package panel
