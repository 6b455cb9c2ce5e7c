// Package harness runs scripted conversations against the bot.
//
// A scenario names a few synthetic images and lists the messages a user
// sends, each with optional expectations about the replies it produces.
// Run feeds the messages through the engine's dispatch loop into a real
// bot.Bot backed by a recording transport, so parsing, session pairing,
// execution and reply rendering are all exercised.
//
// # Scenario Format
//
//	name: album_concat
//	description: "Two album photos joined side by side"
//	timeout: 30s
//	images:
//	  left:  { kind: gradient, width: 4, height: 3 }
//	  right: { kind: solid, width: 2, height: 3, color: "#ff0000" }
//	messages:
//	  - { from: 7, id: 1, at: 0s, photo: left, group: g1, caption: concat }
//	  - from: 7
//	    id: 2
//	    at: 1s
//	    photo: right
//	    group: g1
//	    expect:
//	      count: 2
//	      replies:
//	        - { kind: text, contains: Processing }
//	        - { kind: photo, reply_to: 2, width: 6, height: 3 }
//	pending: 0
//
// Message times are offsets from testutil.Epoch. A message with neither
// photo nor document is a text message; its body is text.
//
// # Deterministic Testing
//
// Every run uses a fixed request id, a fresh session cache and a noise
// generator seeded from the scenario, so the trace is identical across
// runs and can be compared against a golden file:
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(result.Trace())
package harness
