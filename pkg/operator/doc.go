/*
Package operator implements the staff side of the bot: notifications sent to
the operator channel, the aggregate report, per-user summaries looked up by
@username, and the staged broadcast (stage, then confirm or cancel).
*/
package operator
