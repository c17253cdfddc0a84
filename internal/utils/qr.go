package utils

import qrcode "github.com/skip2/go-qrcode"

// QRSize is the edge length in pixels of generated ticket codes.
const QRSize = 320

// QRPNG renders content as a PNG QR code with medium error correction,
// enough to survive a cracked phone screen at the door.
func QRPNG(content string) ([]byte, error) {
    return qrcode.Encode(content, qrcode.Medium, QRSize)
}
