package seed

import "testing"

func TestSampleDataHasUniqueIDs(t *testing.T) {
	ids := map[string]bool{}
	check := func(id string) {
		t.Helper()
		if id == "" {
			t.Fatalf("sample record without id")
		}
		if ids[id] {
			t.Fatalf("duplicate sample id %q", id)
		}
		ids[id] = true
	}
	for _, d := range Drivers() {
		check(d.ID)
	}
	for _, tr := range Trucks() {
		check(tr.ID)
	}
	for _, d := range DumpSites() {
		check(d.ID)
	}
	for _, c := range Customers() {
		check(c.ID)
	}
}

func TestSampleDataIsActiveAndValid(t *testing.T) {
	for _, d := range Drivers() {
		if !d.Active {
			t.Errorf("driver %s inactive", d.ID)
		}
		if err := d.Validate(); err != nil {
			t.Errorf("driver %s: %v", d.ID, err)
		}
	}
	for _, c := range Customers() {
		if err := c.Validate(); err != nil {
			t.Errorf("customer %s: %v", c.ID, err)
		}
	}
}

func TestSampleDataIsFreshCopy(t *testing.T) {
	a := Drivers()
	a[0].Name = "changed"
	if Drivers()[0].Name == "changed" {
		t.Fatalf("Drivers() returned shared backing data")
	}
}
