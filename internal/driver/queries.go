package driver

import "fmt"

// MaxThreadDepth bounds every REPLIED_TO walk, in Cypher and in Go.
const MaxThreadDepth = 8

// Every statement below carries $session_id on every node it touches.
const (
	// Null type or name keeps what the node already has.
	UpsertEntityQuery = `
		MERGE (e:Entity {session_id: $session_id, entity_id: $entity_id})
		SET e.entity_type = coalesce($entity_type, e.entity_type, 'agent'),
			e.name = coalesce($name, e.name, $entity_id)
		RETURN e.entity_id AS entity_id, e.entity_type AS entity_type, e.name AS name
	`

	RecordEventQuery = `
		MERGE (sub:Entity {session_id: $session_id, entity_id: $sub_id})
		SET sub.entity_type = coalesce($sub_type, sub.entity_type),
			sub.name = coalesce($sub_name, sub.name)
		CREATE (evt:Event {
			event_id: $event_id,
			session_id: $session_id,
			timestamp: $timestamp,
			world_time: $world_time,
			verb: $verb,
			details: $details
		})
		CREATE (sub)-[:INITIATED {
			state: $sub_state,
			dimension: $sub_dim,
			biome: $sub_biome,
			x: $sub_x, y: $sub_y, z: $sub_z
		}]->(evt)
		RETURN evt.event_id AS event_id
	`

	RecordTargetedEventQuery = `
		MERGE (sub:Entity {session_id: $session_id, entity_id: $sub_id})
		SET sub.entity_type = coalesce($sub_type, sub.entity_type),
			sub.name = coalesce($sub_name, sub.name)
		MERGE (obj:Entity {session_id: $session_id, entity_id: $obj_id})
		SET obj.entity_type = coalesce($obj_type, obj.entity_type),
			obj.name = coalesce($obj_name, obj.name)
		CREATE (evt:Event {
			event_id: $event_id,
			session_id: $session_id,
			timestamp: $timestamp,
			world_time: $world_time,
			verb: $verb,
			details: $details
		})
		CREATE (sub)-[:INITIATED {
			state: $sub_state,
			dimension: $sub_dim,
			biome: $sub_biome,
			x: $sub_x, y: $sub_y, z: $sub_z
		}]->(evt)
		CREATE (evt)-[:TARGETED {
			state: $obj_state,
			dimension: $obj_dim,
			biome: $obj_biome,
			x: $obj_x, y: $obj_y, z: $obj_z
		}]->(obj)
		RETURN evt.event_id AS event_id
	`

	CreatePostQuery = `
		MERGE (actor:Entity {session_id: $session_id, entity_id: $author_id})
		CREATE (post:SocialPost {
			post_id: $post_id,
			session_id: $session_id,
			type: 'ORIGINAL',
			content: $content,
			timestamp: $timestamp
		})
		CREATE (actor)-[:POSTED]->(post)
		RETURN post.post_id AS post_id
	`

	CreateCommentQuery = `
		MATCH (parent:SocialPost {session_id: $session_id, post_id: $target_post_id})
		MERGE (actor:Entity {session_id: $session_id, entity_id: $author_id})
		CREATE (comment:SocialPost {
			post_id: $post_id,
			session_id: $session_id,
			type: 'COMMENT',
			content: $content,
			timestamp: $timestamp
		})
		CREATE (actor)-[:POSTED]->(comment)
		CREATE (comment)-[:REPLIED_TO]->(parent)
		RETURN comment.post_id AS post_id
	`

	// The per-call token distinguishes "created by this call" from "already
	// liked" even when two likes share a timestamp.
	LikePostQuery = `
		MATCH (actor:Entity {session_id: $session_id, entity_id: $actor_id})
		MATCH (post:SocialPost {session_id: $session_id, post_id: $target_post_id})
		MERGE (actor)-[liked:LIKED]->(post)
		ON CREATE SET liked.timestamp = $timestamp,
			liked.token = $token
		RETURN liked.token = $token AS created
	`

	RepostQuery = `
		MATCH (target:SocialPost {session_id: $session_id, post_id: $target_post_id})
		MERGE (actor:Entity {session_id: $session_id, entity_id: $author_id})
		CREATE (post:SocialPost {
			post_id: $post_id,
			session_id: $session_id,
			type: 'ORIGINAL',
			content: $content,
			timestamp: $timestamp,
			repost_of: $target_post_id
		})
		CREATE (actor)-[:POSTED]->(post)
		CREATE (post)-[:REPOSTED]->(target)
		RETURN post.post_id AS post_id
	`

	ListPostsQuery = `
		MATCH (post:SocialPost {session_id: $session_id})
		OPTIONAL MATCH (author:Entity {session_id: $session_id})-[:POSTED]->(post)
		OPTIONAL MATCH (post)-[:REPLIED_TO]->(parent:SocialPost {session_id: $session_id})
		OPTIONAL MATCH (liker:Entity {session_id: $session_id})-[:LIKED]->(post)
		WITH post, author, parent, count(DISTINCT liker) AS like_count
		OPTIONAL MATCH (reply:SocialPost {session_id: $session_id})-[:REPLIED_TO]->(post)
		WITH post, author, parent, like_count, count(DISTINCT reply) AS comment_count
		OPTIONAL MATCH (copy:SocialPost {session_id: $session_id})-[:REPOSTED]->(post)
		WITH post, author, parent, like_count, comment_count, count(DISTINCT copy) AS repost_count
		RETURN post.post_id AS post_id,
			post.type AS kind,
			post.content AS content,
			post.timestamp AS timestamp,
			post.repost_of AS repost_of,
			author.entity_id AS author_id,
			author.name AS author_name,
			parent.post_id AS parent_id,
			like_count, comment_count, repost_count
		ORDER BY timestamp ASC, post_id ASC
	`

	SessionActivityQuery = `
		CALL {
			MATCH (actor:Entity {session_id: $session_id})-[:POSTED]->(post:SocialPost {session_id: $session_id})
			OPTIONAL MATCH (post)-[:REPLIED_TO]->(parent:SocialPost {session_id: $session_id})
			RETURN post.post_id AS activity_id,
				CASE
					WHEN post.type = 'COMMENT' THEN 'comment'
					WHEN post.repost_of IS NOT NULL THEN 'repost'
					ELSE 'post'
				END AS activity_type,
				actor.entity_id AS actor_id,
				actor.name AS actor_name,
				post.post_id AS post_id,
				CASE WHEN post.type = 'COMMENT' THEN parent.post_id ELSE post.repost_of END AS target_post_id,
				post.content AS content,
				coalesce(post.timestamp, '') AS timestamp
			UNION ALL
			MATCH (actor:Entity {session_id: $session_id})-[liked:LIKED]->(post:SocialPost {session_id: $session_id})
			RETURN actor.entity_id + ':' + post.post_id AS activity_id,
				'like' AS activity_type,
				actor.entity_id AS actor_id,
				actor.name AS actor_name,
				post.post_id AS post_id,
				post.post_id AS target_post_id,
				null AS content,
				coalesce(liked.timestamp, '') AS timestamp
		}
		RETURN activity_id, activity_type, actor_id, actor_name, post_id, target_post_id, content, timestamp
		ORDER BY timestamp DESC, activity_id DESC
	`

	// Matched per label so each branch uses the session_id index.
	ResetSessionQuery = `
		CALL {
			MATCH (e:Entity {session_id: $session_id}) RETURN e AS n
			UNION ALL
			MATCH (v:Event {session_id: $session_id}) RETURN v AS n
			UNION ALL
			MATCH (p:SocialPost {session_id: $session_id}) RETURN p AS n
		}
		DETACH DELETE n
		RETURN count(n) AS deleted
	`
)

// PerceptionQuery reads the three perception sections for one agent in a
// single statement so all sections come from the same snapshot. A
// self-targeted event is kept once, in its subject row, before the event
// limit applies. Ordering and truncation are re-applied in Go.
var PerceptionQuery = fmt.Sprintf(`
	OPTIONAL MATCH (me:Entity {session_id: $session_id, entity_id: $agent_id})

	CALL {
		WITH me
		CALL {
			WITH me
			MATCH (me)-[:INITIATED]->(evt:Event {session_id: $session_id})
			OPTIONAL MATCH (evt)-[:TARGETED]->(obj:Entity {session_id: $session_id})
			RETURN {
				event_id: evt.event_id,
				timestamp: evt.timestamp,
				world_time: evt.world_time,
				verb: evt.verb,
				role: 'subject',
				counterpart_id: obj.entity_id,
				counterpart_name: obj.name,
				details: evt.details
			} AS row
			UNION ALL
			WITH me
			MATCH (me)<-[:TARGETED]-(evt:Event {session_id: $session_id})
			OPTIONAL MATCH (sub:Entity {session_id: $session_id})-[:INITIATED]->(evt)
			RETURN {
				event_id: evt.event_id,
				timestamp: evt.timestamp,
				world_time: evt.world_time,
				verb: evt.verb,
				role: 'object',
				counterpart_id: sub.entity_id,
				counterpart_name: sub.name,
				details: evt.details
			} AS row
		}
		WITH row
		ORDER BY row.role DESC
		WITH row.event_id AS event_id, collect(row)[0] AS row
		WITH row
		ORDER BY row.timestamp DESC, row.event_id DESC
		RETURN collect(row)[0..$event_limit] AS physical_events
	}

	CALL {
		WITH me
		CALL {
			WITH me
			MATCH (me)-[:POSTED]->(my_post:SocialPost {session_id: $session_id})
			MATCH (actor:Entity {session_id: $session_id})-[liked:LIKED]->(my_post)
			WHERE actor.entity_id <> me.entity_id
			RETURN {
				timestamp: liked.timestamp,
				actor_id: actor.entity_id,
				actor_name: actor.name,
				kind: 'LIKE',
				post_id: my_post.post_id,
				content: null,
				comment_id: null
			} AS row
			UNION ALL
			WITH me
			MATCH (me)-[:POSTED]->(my_post:SocialPost {session_id: $session_id})
			MATCH (comment:SocialPost {session_id: $session_id, type: 'COMMENT'})-[:REPLIED_TO]->(my_post)
			MATCH (actor:Entity {session_id: $session_id})-[:POSTED]->(comment)
			WHERE actor.entity_id <> me.entity_id
			RETURN {
				timestamp: comment.timestamp,
				actor_id: actor.entity_id,
				actor_name: actor.name,
				kind: 'COMMENT',
				post_id: my_post.post_id,
				content: comment.content,
				comment_id: comment.post_id
			} AS row
		}
		WITH row
		ORDER BY row.timestamp DESC
		RETURN collect(row) AS social_notifications
	}

	CALL {
		MATCH (post:SocialPost {session_id: $session_id, type: 'ORIGINAL'})
		WITH post
		ORDER BY post.timestamp DESC, post.post_id DESC
		LIMIT $timeline_limit
		OPTIONAL MATCH (author:Entity {session_id: $session_id})-[:POSTED]->(post)
		CALL {
			WITH post
			OPTIONAL MATCH (comment:SocialPost {session_id: $session_id, type: 'COMMENT'})-[:REPLIED_TO*1..%d]->(post)
			OPTIONAL MATCH (comment)-[:REPLIED_TO]->(parent:SocialPost {session_id: $session_id})
			OPTIONAL MATCH (comment_author:Entity {session_id: $session_id})-[:POSTED]->(comment)
			WITH comment, parent, comment_author
			WHERE comment IS NOT NULL
			RETURN collect(DISTINCT {
				comment_id: comment.post_id,
				parent_id: parent.post_id,
				timestamp: comment.timestamp,
				content: comment.content,
				author_id: comment_author.entity_id,
				author_name: comment_author.name
			}) AS comments
		}
		RETURN collect({
			post_id: post.post_id,
			timestamp: post.timestamp,
			content: post.content,
			repost_of: post.repost_of,
			author_id: author.entity_id,
			author_name: author.name,
			comments: comments
		}) AS timeline_posts
	}

	RETURN physical_events, social_notifications, timeline_posts
`, MaxThreadDepth)
