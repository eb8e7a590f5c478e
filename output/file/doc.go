// Package file records smoothed readings to a CSV file.
//
// The recorder is an ordinary bus subscriber. Every reading event becomes
// one row:
//
//	timestamp,sample,co_m,eth_m,voc_m,no2,eth_gm,voc_gm,co_gm
//
// with channel values rounded to two decimals. There is no header row and
// the file is opened in append mode by default, so a restarted relay keeps
// adding to the same log. Status and command events are ignored.
//
// Rows are buffered and written when BufferSize rows are pending or every
// FlushInterval, whichever comes first. Stop flushes whatever remains.
//
// Like any subscriber, a recorder that falls behind loses the oldest
// pending readings rather than slowing the relay down; drops are logged.
package file
