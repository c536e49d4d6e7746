package protocol

import "testing"

func TestValidateClient_Accepts(t *testing.T) {
	cases := []string{
		`{"type":"HELLO","protocol_version":"1.0"}`,
		`{"type":"HELLO","protocol_version":"1.0","client_name":"viewer","viewport":{"width":1920,"height":1080}}`,
		`{"type":"INPUT","protocol_version":"1.0","seq":3,"keys":{"forward":true},"mouse_deltas":[[1.5,-2]],"capture":true}`,
		`{"type":"INPUT","protocol_version":"1.0","mouse_deltas":[[100000,-100000]]}`,
		`{"type":"INPUT","protocol_version":"1.0","viewport":{"width":0,"height":10}}`,
	}
	for _, c := range cases {
		if _, err := ValidateClient([]byte(c)); err != nil {
			t.Fatalf("%s: %v", c, err)
		}
	}
}

func TestValidateClient_Rejects(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"BASIS","protocol_version":"1.0"}`,
		`{"type":"HELLO"}`,
		`{"type":"HELLO","protocol_version":"1.0","extra":1}`,
		`{"type":"INPUT","protocol_version":"1.0","mouse_deltas":[[1]]}`,
		`{"type":"INPUT","protocol_version":"1.0","keys":{"jump":true}}`,
		`{"type":"INPUT","protocol_version":"1.0","viewport":{"width":1.5,"height":2}}`,
		`{"type":"INPUT","protocol_version":"1.0","mouse_deltas":[[3.4e38,0]]}`,
		`{"type":"INPUT","protocol_version":"1.0","mouse_deltas":[[0,-100001]]}`,
	}
	for _, c := range cases {
		if _, err := ValidateClient([]byte(c)); err == nil {
			t.Fatalf("%s: expected error", c)
		}
	}
}

func TestValidateClient_RoutesType(t *testing.T) {
	base, err := ValidateClient([]byte(`{"type":"INPUT","protocol_version":"1.0"}`))
	if err != nil {
		t.Fatalf("ValidateClient: %v", err)
	}
	if base.Type != TypeInput || base.ProtocolVersion != Version {
		t.Fatalf("unexpected base: %+v", base)
	}
}
