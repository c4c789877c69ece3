/*
Package domain contains the core domain models of the intake questionnaire bot.

It defines the script graph, the persisted user cursor, the append-only answer
log and the Decision value the navigation engine hands to the transport. The
package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - Node: One step of the questionnaire (content, choices, actions, capture rules).
  - User: The persisted conversational state; Progress is the only cursor.
  - Answer: An append-only record of a response to a question slot.
  - Decision: What the host should render, record and notify after one turn.
*/
package domain
