// Package frame defines the bridge wire format and its codecs.
//
// Every message exchanged with a bridge is a single Frame:
//
//	{
//	  "id": "01HZX3Q8M2V6W7Y9A0B1C2D3E4",
//	  "type": "request",
//	  "action": "analyze_project",
//	  "data": {...},
//	  "timestamp": 1718000000000
//	}
//
// Inbound frames are classified by their type field into responses,
// streaming chunks, and unsolicited events. A Codec turns frames into bytes
// and back; JSON (text frames) and CBOR (binary frames) are provided.
package frame
