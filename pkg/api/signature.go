// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MichaelACosta/uhu/pkg/config"
)

// SignatureVersion labels the signing scheme in the Authorization
// header and in the string-to-sign.
const SignatureVersion = "UHV1"

// stringToSign binds the scheme label, the request timestamp and the
// canonical request digest together.
func stringToSign(req *Request) string {
	canonicalDigest := sha256.Sum256([]byte(req.Canonical()))
	return strings.Join([]string{
		SignatureVersion,
		req.Headers["Timestamp"],
		hex.EncodeToString(canonicalDigest[:]),
	}, "\n")
}

// Sign computes the Authorization header value for req:
//
//	UHV1 Credential=<access-id>, SignedHeaders=<h1;h2;...>, Signature=<hex hmac>
func Sign(req *Request, creds *config.Credentials) string {
	mac := hmac.New(sha256.New, []byte(creds.AccessSecret))
	mac.Write([]byte(stringToSign(req)))
	return fmt.Sprintf("%s Credential=%s, SignedHeaders=%s, Signature=%s",
		SignatureVersion, creds.AccessID, req.SignedHeaders(),
		hex.EncodeToString(mac.Sum(nil)))
}
