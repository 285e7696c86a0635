package metadata

import (
	"reflect"
	"strings"
	"testing"
)

const base = "http://host/meta-data/"

func TestNormalize_SingleAndNestedKeys(t *testing.T) {
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "instance-id":                 "i-1234",
		base + "placement/availability-zone": "eu-west-1a",
	}

	facts := n.Normalize(raw, base)

	if got := facts["ec2_instance_id"]; got != "i-1234" {
		t.Errorf("ec2_instance_id = %q", got)
	}
	if got := facts["ec2_placement_availability_zone"]; got != "eu-west-1a" {
		t.Errorf("ec2_placement_availability_zone = %q", got)
	}
	if len(facts) != 2 {
		t.Errorf("len(facts) = %d, want 2", len(facts))
	}
}

func TestNormalize_FilterLaw(t *testing.T) {
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "public-keys/0/openssh-key": "ssh-rsa AAAA",
		base + "instance-id":               "i-1234",
	}

	facts := n.Normalize(raw, base)

	for k := range facts {
		if strings.Contains(k, "public_keys_0") {
			t.Errorf("filtered subtree leaked into output: %s", k)
		}
	}
	if len(facts) != 1 {
		t.Errorf("len(facts) = %d, want 1", len(facts))
	}
}

func TestNormalize_KeySafetyLaw(t *testing.T) {
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "network/interfaces/macs/0e:ab:cd/device-index": "0",
		base + "block-device-mapping/ami":                      "/dev/sda1",
	}

	facts := n.Normalize(raw, base)

	for k := range facts {
		if strings.ContainsAny(k, ":-") {
			t.Errorf("unsafe key emitted: %s", k)
		}
	}
	if _, ok := facts["ec2_network_interfaces_macs_0e_ab_cd_device_index"]; !ok {
		t.Errorf("expected sanitized mac key, got %v", facts)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "instance-id":                 "i-1234",
		base + "placement/availability-zone": "eu-west-1a",
		base + "security-groups":             "sg-a,sg-b",
	}

	first := n.Normalize(raw, base)
	second := n.Normalize(raw, base)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not idempotent: %v vs %v", first, second)
	}
}

func TestNormalize_CollisionIsDeterministic(t *testing.T) {
	// "a-b" and "a/b" both sanitize to ec2_a_b. Raw keys are processed in
	// sorted order, so the lexically later one ("a/b") must win every run.
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "a-b": "from-hyphen",
		base + "a/b": "from-path",
	}

	for range 10 {
		facts := n.Normalize(raw, base)
		if len(facts) != 1 {
			t.Fatalf("len(facts) = %d, want 1", len(facts))
		}
		if got := facts["ec2_a_b"]; got != "from-path" {
			t.Fatalf("ec2_a_b = %q, want %q", got, "from-path")
		}
	}
}

func TestNormalize_SanitizeCollisionIsDeterministic(t *testing.T) {
	// "a:b" and "a-b" collide only once ':' and '-' are rewritten to '_',
	// after the hyphenation stage. The sanitize pass also applies keys in
	// sorted order, so "ec2_a:b" (lexically after "ec2_a-b") must win on
	// every run.
	n := NewNormalizer("ec2")
	raw := map[string]string{
		base + "a:b": "from-colon",
		base + "a-b": "from-hyphen",
	}

	for range 200 {
		facts := n.Normalize(raw, base)
		if len(facts) != 1 {
			t.Fatalf("len(facts) = %d, want 1", len(facts))
		}
		if got := facts["ec2_a_b"]; got != "from-colon" {
			t.Fatalf("ec2_a_b = %q, want %q", got, "from-colon")
		}
	}
}

func TestFactName(t *testing.T) {
	n := NewNormalizer("ec2")
	if got := n.FactName("user-data"); got != "ec2_user_data" {
		t.Errorf("FactName(user-data) = %q", got)
	}
	if got := n.FactName("public-key"); got != "ec2_public_key" {
		t.Errorf("FactName(public-key) = %q", got)
	}
}
