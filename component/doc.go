// Package component defines the contracts shared by every long-running part
// of the relay: discovery (Meta, Health, DataFlow), the Initialize / Start /
// Stop lifecycle and a Manager that drives a set of components.
//
// # Lifecycle
//
// Components follow one pattern:
//
//	Initialize() error                  // validate and allocate, no I/O
//	Start(ctx context.Context) error    // bind and spawn goroutines, return promptly
//	Stop(timeout time.Duration) error   // stop goroutines and release sockets
//
// Start must not block for the life of the component. A Start error is fatal
// to the process; everything after Start is recovered inside the component.
//
// # Manager
//
// Manager starts components in registration order and stops them in reverse,
// so producers such as the device listener can be registered after the
// consumers they feed:
//
//	m := component.NewManager(logger)
//	m.Register("relay", relayServer)
//	m.Register("device", deviceListener)
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Stop(5 * time.Second)
package component
