package xmlfix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sample = `<ROOT>
  <TRAFFIC_ROUTE name="a" type="TLC">
    <RECEIVERS_PORTS_LIST>
      <RECEIVER_PORT receiverPortName="X.PORT_1"/>
      <RECEIVER_PORT receiverPortName="X.PORT_2"/>
    </RECEIVERS_PORTS_LIST>
  </TRAFFIC_ROUTE>
  <TRAFFIC_ROUTE name="b" type="ATC">
    <RECEIVERS_PORTS_LIST>
      <RECEIVER_PORT receiverPortName="Y.PORT_1"/>
    </RECEIVERS_PORTS_LIST>
  </TRAFFIC_ROUTE>
</ROOT>
`

const fixed = `<ROOT>
  <TRAFFIC_ROUTE name="a" type="TLC">
    <RECEIVERS_PORTS_LIST>
      <RECEIVER_PORT receiverPortName="TLC_SW.CARD_1.PORT_PROC"/>
    </RECEIVERS_PORTS_LIST>
  </TRAFFIC_ROUTE>
  <TRAFFIC_ROUTE name="b" type="ATC">
    <RECEIVERS_PORTS_LIST>
      <RECEIVER_PORT receiverPortName="Y.PORT_1"/>
    </RECEIVERS_PORTS_LIST>
  </TRAFFIC_ROUTE>
</ROOT>
`

func TestFix(t *testing.T) {
	got, n := Fix(sample, "")
	if n != 1 {
		t.Fatalf("routes = %d, want 1", n)
	}
	if got != fixed {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestFixIndentFallback(t *testing.T) {
	in := "<TRAFFIC_ROUTE type=\"TLC\">\n\t<RECEIVERS_PORTS_LIST>\n\t</RECEIVERS_PORTS_LIST>\n</TRAFFIC_ROUTE>"
	want := "<TRAFFIC_ROUTE type=\"TLC\">\n\t<RECEIVERS_PORTS_LIST>\n\t\t<RECEIVER_PORT receiverPortName=\"P\"/>\n\t</RECEIVERS_PORTS_LIST>\n</TRAFFIC_ROUTE>"
	got, _ := Fix(in, "P")
	if got != want {
		t.Fatalf("Fix() = %q, want %q", got, want)
	}

	in = "<TRAFFIC_ROUTE type=\"TLC\">\n  <RECEIVERS_PORTS_LIST></RECEIVERS_PORTS_LIST>\n</TRAFFIC_ROUTE>"
	want = "<TRAFFIC_ROUTE type=\"TLC\">\n  <RECEIVERS_PORTS_LIST>\n      <RECEIVER_PORT receiverPortName=\"P\"/>\n  </RECEIVERS_PORTS_LIST>\n</TRAFFIC_ROUTE>"
	got, _ = Fix(in, "P")
	if got != want {
		t.Fatalf("Fix() = %q, want %q", got, want)
	}
}

func TestFixFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.xml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, err := FixFile(path, "")
	if err != nil {
		t.Fatalf("FixFile: %v", err)
	}
	if res.Routes != 1 || res.BackupPath != path+".bak" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if data, _ := os.ReadFile(path); string(data) != fixed {
		t.Fatalf("file not rewritten:\n%s", data)
	}
	if data, _ := os.ReadFile(res.BackupPath); string(data) != sample {
		t.Fatalf("backup does not hold the original")
	}
}

func TestFixFileNoRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.xml")
	if err := os.WriteFile(path, []byte("<ROOT/>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := FixFile(path, ""); !errors.Is(err, ErrNoRoutes) {
		t.Fatalf("expected ErrNoRoutes, got %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup should not be written, stat err = %v", err)
	}
}
