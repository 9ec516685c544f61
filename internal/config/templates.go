package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "receiver", "dcmrecv":
		return receiverTemplate, nil
	case "sender", "dcmsend":
		return senderTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const receiverTemplate = `node = "dcmrecv"
addr = "127.0.0.1:11112"
# empty disables the admin HTTP listener
admin_addr = "127.0.0.1:9110"
cors_origins = ["http://localhost:3000"]
# status_token = "change-me"
max_connections = 64
max_streams_per_conn = 8
idle_timeout = "30s"
write_timeout = "10s"
strict = false
max_frame_payload = 8388608
max_value_length = 0
max_depth = 64
# dictionary = "private.toml"
`

const senderTemplate = `addr = "127.0.0.1:11112"
syntax = "explicit-le"
length_style = "preserve"
chunk_size = 65536
dial_timeout = "5s"
response_timeout = "30s"
max_attempts = 5
backoff_initial = "250ms"
backoff_multiplier = 2.0
backoff_max = "5s"
backoff_jitter = true
`
