// Package config stores aio-mgr's per-user state in a YAML file: devices
// remembered by name and the defaults used for discovery.
//
// The file lives at GetConfigPath (config.yaml under GetConfigDir, or
// $AIO_CONFIG). A missing file behaves like an empty registry; fields left
// out of an existing file take DefaultPreferences values. Writes go to a
// temporary file that is renamed into place.
//
// Tokens are deliberately absent from the schema.
//
//	reg, err := config.LoadRegistry()
//	if err != nil {
//	    return err
//	}
//	reg.RememberDevice("aio-lab-1", "192.168.1.40", 5312)
//	return reg.Save()
//
// LoadRegistry caches one Registry per process. The Registry itself is not
// safe for concurrent mutation.
package config
