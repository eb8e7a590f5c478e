// Package message defines the events carried by the relay bus and their
// observer wire encoding.
//
// An Event is a closed tagged union over three payloads:
//
//   - SensorReading: timestamp, sample label and seven smoothed channels
//     (co_m, eth_m, voc_m, no2, eth_gm, voc_gm, co_gm).
//   - StatusEvent: a device status, motor speed or calibration progress
//     update, serialized with a "msg_type" discriminator.
//   - CommandEvent: an opaque line sent by an observer.
//
// Observers receive one line per event:
//
//	DATA:{"timestamp":1000,"sample":"Daun Kari","co_m":2.56,...}
//	STATUS:{"msg_type":"motor","motor":"M1","speed":60}
//
// Commands are never written to observers.
package message
