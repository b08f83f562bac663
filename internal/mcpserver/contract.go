package mcpserver

// IDConventions describes how Geocore names records, relationships and
// timestamps, for LLM consumers composing tool arguments.
const IDConventions = `# Geocore Conventions

## Ids

Every record id starts with a prefix naming its type:

| prefix | type |
|---|---|
| PRO | project |
| USE | user |
| GRO | group |
| PLA | place |
| EVE | event |
| ITE | item |
| TAG | tag |

The prefix is a hint. Ids returned by the server are authoritative; never
invent one. A device's default user id is ` + "`USE-<project suffix>-<device id>`" + `.

## Relationships

User to place kinds: CREATOR, OWNER, MANAGER, ORGANIZER, STAFF, SELLER,
AGENT, REALTOR, FOLLOWER, SUPPORTER, VISITOR, CUSTOMER, PLAYER, MEMBER,
BUYER.

User to event kinds: ORGANIZER, PERFORMER, PARTICIPANT, ATTENDANT.

Both also accept the application kinds CUSTOM01 to CUSTOM10.

## Timestamps

Record timestamps (` + "`createTime`, `updateTime`, `time`" + `) use
` + "`yyyy/MM/dd HH:mm:ss`" + ` in UTC, e.g. ` + "`2015/04/23 09:30:00`" + `.
Feed timestamps are milliseconds since the Unix epoch.

## Binaries

A binary is addressed by its owner's id plus a key. Keys contain only
letters, digits, ` + "`_` and `-`" + `. Use binary_url to resolve a download URL.

## Custom data

` + "`customData`" + ` is a flat string-to-string map on every record.
` + "`jsonData`" + ` holds one free-form JSON document. Coordinates are
` + "`point.latitude` and `point.longitude`" + ` in degrees.
`
