// Reader is a testing facility to read the output of a http reporter.

package reporter

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

type HttpReader struct {
	serverIP   string // listen ip
	serverPort string // listen port
}

func NewHttpReader(serverIP string, serverPort string) *HttpReader {
	return &HttpReader{
		serverIP:   serverIP,
		serverPort: serverPort,
	}
}

func (hr *HttpReader) base() string {
	return "http://" + hr.serverIP + ":" + hr.serverPort
}

// read returns the status code and body of resp.
func read(resp *http.Response, err error) (int, string, error) {
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

func (hr *HttpReader) GetHello() (string, error) {
	_, body, err := read(http.Get(hr.base() + ROUTE_HELLO))
	return body, err
}

func (hr *HttpReader) PostDeposit(req DepositRequest) (int, string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, "", err
	}
	return read(http.Post(hr.base()+ROUTE_DEPOSIT, "application/json", bytes.NewReader(payload)))
}

func (hr *HttpReader) GetDeposit(address string) (int, string, error) {
	return read(http.Get(hr.base() + ROUTE_DEPOSIT + "?address=" + url.QueryEscape(address)))
}

func (hr *HttpReader) GetProof(txHash string, confirmations int) (int, string, error) {
	q := url.Values{"tx_hash": {txHash}, "confirmations": {strconv.Itoa(confirmations)}}
	return read(http.Get(hr.base() + ROUTE_PROOF + "?" + q.Encode()))
}
