// Package artnet implements the Art-Net DMX receive path for OrcheStream.
//
// Art-Net carries DMX512 lighting data over UDP. This package provides:
//   - Packet parsing (ArtDMX opcode 0x5000) into fixed 512-channel frames
//   - A UDP receiver with change suppression, so downstream consumers only
//     see frames that differ from the previous one
//   - Snapshot access to the last accepted frame for diagnostics
//
// Channel numbering is 1-based at every public boundary, matching DMX
// convention. Frames are always 512 channels; short payloads are
// zero-padded and long payloads truncated during parsing.
//
// Usage:
//
//	recv := artnet.NewReceiver(cfg.ArtNet, logger)
//	recv.SetCallback(func(f artnet.Frame) { ... })
//	if err := recv.Start(); err != nil {
//	    return err
//	}
//	defer recv.Stop()
//
// Thread Safety: All exported methods are safe for concurrent use. The
// frame callback runs on the receive goroutine and must not block for
// long periods.
package artnet
