package checksum

import "testing"

func TestTable_StableAcrossRuns(t *testing.T) {
	facts := map[string]string{
		"ec2_instance_id": "i-1234",
		"ec2_ami_id":      "ami-42",
	}
	first := Table(facts)
	for range 5 {
		if got := Table(facts); got != first {
			t.Fatalf("digest changed: %s vs %s", got, first)
		}
	}
}

func TestTable_SensitiveToValues(t *testing.T) {
	a := Table(map[string]string{"k": "v1"})
	b := Table(map[string]string{"k": "v2"})
	if a == b {
		t.Error("different values produced equal digests")
	}
}

func TestTable_SensitiveToKeys(t *testing.T) {
	a := Table(map[string]string{"k1": "v"})
	b := Table(map[string]string{"k2": "v"})
	if a == b {
		t.Error("different keys produced equal digests")
	}
}
