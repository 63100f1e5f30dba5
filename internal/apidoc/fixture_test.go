package apidoc

// sampleDoc mimics the text rendering of a reference document: a title line,
// the "Method" / "URL" marker, the verb and path on their own lines, then
// labeled tables and examples with one cell per line.
const sampleDoc = `Fleethand API
=== Page 1 ===
Vehicles
Get vehicles list
Method
URL
GET
/api/v1/vehicles
Returns all vehicles for a company.
Request headers
Key
Data type
Required
Description
apiKey
String
Yes
The partner API key.
Request parameters
Parameter
Data type
Required
Description
vehicleId
Long
No
Vehicle identifier.
limit
Integer
No
Maximum number of items.
Response example
Status
200
Response
{"status":"OK","payload":123}

Create driver
Method
URL
POST
/api/v1/drivers
This method creates a new driver in the company.
Request body
{"name": "John", "cardNumber": "123",}
Response example
Status
201
Response
{
"status": "OK",
"payload": SAVED
}

Delete task
Method
URL
DELETE
/api/v1/tasks/{taskId}
Response example
[1, 2, 3]
`
