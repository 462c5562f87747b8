// Package device implements the client side of the AIO session protocol.
//
// A Device is a handle on one AIO endpoint (IPv4 address and TCP port). It
// owns at most one authenticated session at a time:
//
//	dev, err := device.New("192.168.1.40", 5312)
//	if err != nil {
//		return err
//	}
//	resp, err := dev.Connect(ctx, token)
//	if err != nil {
//		return err
//	}
//	if !resp.OK() {
//		return fmt.Errorf("connect refused: %s", resp.Summary())
//	}
//	defer dev.Disconnect(ctx)
//
//	resp, err = dev.Send(ctx, "ping")
//
// Authentication failures and unknown commands are reported through the
// response status (DENIED, ERROR). The error return is reserved for state
// violations and transport failures.
package device
