// Package peer implements the client side of the rendezvous protocol: a peer
// that registers with the index, resolves other peers' addresses through a
// discovery cache and exchanges message envelopes with them directly.
//
// # Pipeline
//
// A Peer owns two UDP sockets. The listening socket receives messages from
// other peers and is also used to send them; the lookup socket talks to the
// index. Once registered, Run drives three loops that share the discovery
// cache and the inbound queue:
//
//   - receive: decodes inbound datagrams and appends valid messages to the
//     inbound queue, dropping everything else
//   - send: serves Send calls, resolving the destination through the
//     discovery cache before writing the message envelope
//   - delivery: drains the inbound queue in arrival order and hands each
//     message to the Consumer
//
// A failure in one loop is reported where it happened and never stops the
// other loops.
//
// # Example
//
//	config := peer.DefaultConfig()
//	config.Port = 6000
//	p, err := peer.New(config, peer.ConsumerFunc(func(m *wire.Message) {
//	    fmt.Printf("%s: %s\n", m.Src, m.Data)
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Register(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	go p.Run(ctx)
//
//	// Once p.IsRunning reports true:
//	err = p.Send(ctx, friendID, "hello")
//
// # Resolution
//
// Every index round trip carries a fresh req_id and is bounded by
// Config.RequestTimeout. Responses are matched to requests by that token;
// stray or late responses are discarded.
package peer
