// Package testutil provides shared fixtures and helpers for relay tests.
//
// Device frames:
//
//	line := testutil.DataLine("kari", 2.5)    // {"type":"data",...}
//	testutil.MotorLine("M1", 60)
//	testutil.StatusLine("ready", "warming up")
//	testutil.CalibLine(5, 10)
//
// Bus events:
//
//	b.Publish(testutil.Reading(1, "Daun Kari", 1.0))
//
// Capturing what a component publishes without a bus:
//
//	pub := &testutil.CapturePublisher{}
//	session, _ := device.NewSession(device.SessionConfig{..., Publisher: pub})
//	...
//	events := pub.Events()
//
// Receiving from a subscription with a deadline:
//
//	ev := testutil.Recv(t, sub)
package testutil
