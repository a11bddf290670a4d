package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

func streamToNumber[T constraints.Integer | constraints.Float](data []byte) (T, error) {
	var result T
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &result); err != nil {
		return *new(T), err
	}
	return result, nil
}

func numberToStream(value any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeIMEI decodes a login handshake: 2-byte big-endian length
// followed by the ASCII IMEI.
func DecodeIMEI(data []byte) (string, error) {
	if len(data) < 2 {
		return "", errors.New("invalid imei bytes length")
	}
	imeiLength := int(binary.BigEndian.Uint16(data[:2]))
	if imeiLength == 0 || imeiLength > maxIMEILength {
		return "", fmt.Errorf("invalid imei length %d", imeiLength)
	}
	if len(data) < 2+imeiLength {
		return "", errors.New("imei bytes shorter than declared length")
	}
	imei := data[2 : 2+imeiLength]
	if !allDigits(imei) {
		return "", errors.New("imei contains non-digit characters")
	}
	return string(imei), nil
}

// EncodeIMEI builds the login handshake bytes for an IMEI.
func EncodeIMEI(imei string) ([]byte, error) {
	if len(imei) == 0 || len(imei) > maxIMEILength {
		return nil, fmt.Errorf("invalid imei length %d", len(imei))
	}
	if !allDigits([]byte(imei)) {
		return nil, errors.New("imei contains non-digit characters")
	}
	data := binary.BigEndian.AppendUint16(nil, uint16(len(imei)))
	return append(data, imei...), nil
}

func allDigits(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// calculateCRC16 implements CRC-16/IBM as used by the AVL protocol.
func calculateCRC16(data []byte) uint16 {
	crc := uint16(0)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
