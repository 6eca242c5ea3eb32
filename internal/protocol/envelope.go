package protocol

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sabarim/starmf/internal/errs"
)

const (
	NamespaceSOAP       = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceStar       = "http://bsestarmf.in/"
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"
	actionBase          = "http://bsestarmf.in/MFOrderEntry/"
)

// Action returns the WS-Addressing action for a remote method.
func Action(method string) string { return actionBase + method }

type envelope struct {
	XMLName    xml.Name `xml:"soap:Envelope"`
	Soap       string   `xml:"xmlns:soap,attr"`
	Star       string   `xml:"xmlns:bses,attr"`
	Addressing string   `xml:"xmlns:wsa,attr"`
	Header     header   `xml:"soap:Header"`
	Body       body     `xml:"soap:Body"`
}

type header struct {
	Action string `xml:"wsa:Action"`
	To     string `xml:"wsa:To"`
}

type body struct {
	Call call
}

type call struct {
	XMLName  xml.Name
	Param    string `xml:"bses:Param"`
	Password string `xml:"bses:Password"`
	PassKey  string `xml:"bses:PassKey"`
}

// Envelope wraps a positional payload in a SOAP 1.2 request for method.
func Envelope(method, endpoint, payload, credential, passKey string) ([]byte, error) {
	env := envelope{
		Soap:       NamespaceSOAP,
		Star:       NamespaceStar,
		Addressing: NamespaceAddressing,
		Header:     header{Action: Action(method), To: endpoint},
		Body: body{Call: call{
			XMLName:  xml.Name{Local: "bses:" + method},
			Param:    payload,
			Password: credential,
			PassKey:  passKey,
		}},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, errors.Wrap(err, "[protocol] - failed to encode envelope")
	}
	return buf.Bytes(), nil
}

// ExtractResult returns the pipe delimited text carried by a reply. Plain
// text replies are returned trimmed; SOAP replies yield the text of the
// first element whose name ends in "Result". A SOAP fault is a ProtocolFault.
func ExtractResult(raw []byte) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errs.Protocol("[protocol] - empty response")
	}
	if !strings.HasPrefix(text, "<") {
		return text, nil
	}

	dec := xml.NewDecoder(strings.NewReader(text))
	var (
		inFault  bool
		inResult bool
		capture  string
		fault    []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errs.Protocol("[protocol] - malformed XML response: " + err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "Fault":
				inFault = true
			case !inFault && strings.HasSuffix(t.Name.Local, "Result"):
				inResult = true
				capture = ""
			}
		case xml.CharData:
			if inResult {
				capture += string(t)
			} else if inFault {
				if s := strings.TrimSpace(string(t)); s != "" {
					fault = append(fault, s)
				}
			}
		case xml.EndElement:
			if inResult && strings.HasSuffix(t.Name.Local, "Result") {
				return strings.TrimSpace(capture), nil
			}
			if t.Name.Local == "Fault" {
				return "", errs.Protocol("[protocol] - SOAP fault: " + strings.Join(fault, " "))
			}
		}
	}
	return "", errs.Protocol("[protocol] - response has no result element")
}
