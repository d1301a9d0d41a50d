package tlsconf

import (
	"encoding/pem"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

func TestDefaultPolicyVerifies(t *testing.T) {
	config, err := Policy{}.Config()
	assert.NilError(t, err)
	assert.Check(t, !config.InsecureSkipVerify)
	assert.Check(t, config.RootCAs == nil)
}

func TestInsecurePolicy(t *testing.T) {
	config, err := Policy{InsecureSkipVerify: true}.Config()
	assert.NilError(t, err)
	assert.Check(t, config.InsecureSkipVerify)
}

func TestCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(nil)
	defer srv.Close()

	dir, err := ioutil.TempDir("", "tlsconf")
	assert.NilError(t, err)
	defer os.RemoveAll(dir)

	ca := filepath.Join(dir, "ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}
	assert.NilError(t, ioutil.WriteFile(ca, pem.EncodeToMemory(block), 0644))

	config, err := Policy{CAFile: ca}.Config()
	assert.NilError(t, err)
	assert.Check(t, config.RootCAs != nil)

	bad := filepath.Join(dir, "bad.pem")
	assert.NilError(t, ioutil.WriteFile(bad, []byte("not a cert"), 0644))
	_, err = Policy{CAFile: bad}.Config()
	assert.ErrorContains(t, err, "no certificates")

	_, err = Policy{CAFile: filepath.Join(dir, "missing.pem")}.Config()
	assert.ErrorContains(t, err, "unable to read CA bundle")
}
